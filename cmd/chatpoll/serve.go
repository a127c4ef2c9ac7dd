package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/askeland/chatpoll"
	"github.com/askeland/chatpoll/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// serveCmd starts the chatpoll watcher.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the watcher",
	Long: `Start the chatpoll watcher.

The watcher will:
  - Load configuration from the specified YAML file
  - Serve the HTTP API on the configured port
  - Begin polling the status endpoint when the first chat message arrives

The watcher runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  chatpoll serve -c config.yaml
  chatpoll serve --config /etc/chatpoll/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"status_url", cfg.StatusURL,
		"chat_url", cfg.ChatURL,
	)
	logger.Info("starting watcher",
		"port", cfg.Port,
		"poll_interval", cfg.PollInterval.Duration().String(),
		"auto_start", cfg.AutoStart,
	)

	opts := append(config.BuildOptions(cfg), chatpoll.WithLogger(logger))

	w, err := chatpoll.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start watcher - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx)
	}()

	// wait for watcher to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("watcher error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("watcher error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
