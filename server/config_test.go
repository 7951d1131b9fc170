package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/burntcarrot/wavepad/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	src := `
addr: ":7000"
store:
  kind: badger
  path: /var/lib/wavepad
schema: none
initial: ""
history_limit: 50
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "badger", cfg.Store.Kind)
	assert.Equal(t, "/var/lib/wavepad", cfg.Store.Path)
	assert.True(t, cfg.Store.SyncWrites, "unset keys keep their defaults")
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, "", cfg.Initial)

	s, err := cfg.LoadSchema()
	require.NoError(t, err)
	assert.Equal(t, schema.NoSchema{}, s)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("WAVEPAD_ADDR", ":9100")
	t.Setenv("WAVEPAD_STORE", "badger")
	t.Setenv("WAVEPAD_DATA", "/tmp/wavepad")
	t.Setenv("WAVEPAD_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "badger", cfg.Store.Kind)
	assert.Equal(t, "/tmp/wavepad", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"no addr", func(c *Config) { c.Addr = "" }, "addr is required"},
		{"unknown store", func(c *Config) { c.Store.Kind = "s3" }, "unknown store kind"},
		{"badger without path", func(c *Config) { c.Store.Kind, c.Store.Path = "badger", "" }, "store.path"},
		{"no schema", func(c *Config) { c.Schema = "" }, "schema is required"},
		{"negative history", func(c *Config) { c.HistoryLimit = -1 }, "history_limit"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad initial", func(c *Config) { c.Initial = "<body>" }, "initial"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadSchemaFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top: {children: [p]}\nelements: {p: {characters: any}}\n"), 0o644))

	cfg := DefaultConfig()
	cfg.Schema = path
	s, err := cfg.LoadSchema()
	require.NoError(t, err)
	assert.True(t, s.PermitsChild("", "p"))

	cfg.Schema = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.LoadSchema()
	assert.Error(t, err)
}
