package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "wavepad-server",
	Short:         "Collaborative document server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve documents over WebSocket",
	Long:  `Serves documents at / (select one with ?doc=<id>) and Prometheus metrics at /metrics.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// Flags for the serve command.
var (
	configPath string
	serveAddr  string
)

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Server's network address (overrides the config)")

	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	logger := cfg.Logger()
	s, err := cfg.LoadSchema()
	if err != nil {
		return err
	}
	initial, err := cfg.InitialDocument()
	if err != nil {
		return err
	}
	st, err := cfg.OpenStore(logger)
	if err != nil {
		return err
	}
	defer st.Close()

	hub := NewHub(st, s, initial, cfg.HistoryLimit, logger)
	defer hub.Close()

	mux := http.NewServeMux()
	mux.Handle("/", hub)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	color.Cyan("wavepad serving on %s (store: %s, schema: %s)", cfg.Addr, cfg.Store.Kind, cfg.Schema)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	color.Yellow("shutting down")
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
