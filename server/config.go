package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/burntcarrot/wavepad/docop"
	"github.com/burntcarrot/wavepad/schema"
	"github.com/burntcarrot/wavepad/store"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration, read from YAML and then overridden by
// WAVEPAD_* environment variables.
type Config struct {
	// Addr is the server's network address.
	Addr string `yaml:"addr"`

	Store StoreConfig `yaml:"store"`

	// Schema is "conversation", "none", or the path of a YAML schema definition.
	Schema string `yaml:"schema"`

	// Initial is the XML every new document starts from. Empty starts from
	// the empty document.
	Initial string `yaml:"initial"`

	// HistoryLimit is the number of deltas each document keeps in memory for
	// transforming late submissions. Zero keeps all of them.
	HistoryLimit int `yaml:"history_limit"`

	Log LogConfig `yaml:"log"`
}

type StoreConfig struct {
	// Kind is "memory" or "badger".
	Kind string `yaml:"kind"`

	// Path is the badger data directory.
	Path string `yaml:"path"`

	SyncWrites bool `yaml:"sync_writes"`
}

type LogConfig struct {
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// DefaultConfig serves conversation documents from memory on :9000.
func DefaultConfig() Config {
	return Config{
		Addr:         ":9000",
		Store:        StoreConfig{Kind: "memory", Path: "data", SyncWrites: true},
		Schema:       "conversation",
		Initial:      "<body><line></line></body>",
		HistoryLimit: 1000,
		Log:          LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads path on top of the defaults, applies the environment and
// validates the result. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("WAVEPAD_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("WAVEPAD_STORE"); v != "" {
		c.Store.Kind = v
	}
	if v := os.Getenv("WAVEPAD_DATA"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("WAVEPAD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	switch c.Store.Kind {
	case "memory":
	case "badger":
		if c.Store.Path == "" {
			return errors.New("store.path is required for the badger store")
		}
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if c.Schema == "" {
		return errors.New("schema is required")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must be >= 0, got %d", c.HistoryLimit)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	if _, err := docop.ParseXML(c.Initial); err != nil {
		return fmt.Errorf("initial: %w", err)
	}
	return nil
}

// Logger returns a logger writing to stderr at the configured level.
func (c Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(c.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// LoadSchema resolves the schema setting.
func (c Config) LoadSchema() (schema.DocumentSchema, error) {
	switch c.Schema {
	case "conversation":
		return schema.Conversation(), nil
	case "none":
		return schema.NoSchema{}, nil
	}
	d, err := schema.LoadDefinition(filepath.Clean(c.Schema))
	if err != nil {
		return nil, err
	}
	return d, nil
}

// InitialDocument parses the configured initial content.
func (c Config) InitialDocument() (*docop.Document, error) {
	return docop.ParseXML(c.Initial)
}

// OpenStore opens the configured delta store.
func (c Config) OpenStore(logger logrus.FieldLogger) (store.DeltaStore, error) {
	if c.Store.Kind == "memory" {
		return store.NewMemoryStore(), nil
	}
	cfg := store.DefaultConfig(c.Store.Path)
	cfg.SyncWrites = c.Store.SyncWrites
	cfg.Logger = logger
	s, err := store.OpenBadger(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
