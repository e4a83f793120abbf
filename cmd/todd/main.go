// Package main is the entry point for the todd CLI.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"todd/internal/backend/rest"
	"todd/internal/cli"
	"todd/internal/client"
	"todd/internal/commands"
	"todd/internal/config"
	"todd/internal/logging"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create client factory
	factory := func(ctx context.Context, cfg *config.Config) (*client.Client, error) {
		logger := newLogger(cfg)
		svc, err := rest.New(cfg.Settings.APIURL, rest.Options{
			Timeout: cfg.Settings.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return client.New(cfg, svc, client.Options{Logger: logger}), nil
	}

	// Create dispatcher
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// newLogger logs to stderr. --debug forces debug level; otherwise log_level
// applies, with info raised to warn.
func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.Debug {
		return logging.Setup(os.Stderr, slog.LevelDebug)
	}
	level := logging.ParseLevel(cfg.Settings.LogLevel)
	if level == slog.LevelInfo {
		level = slog.LevelWarn
	}
	return logging.Setup(os.Stderr, level)
}
