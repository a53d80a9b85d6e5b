// Package main implements the entry point for the taskflow API server,
// which manages tasks shared between users with role-based permissions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"Run a database migration command (up, down, reset, status, version) and exit")
	flag.Parse()

	if err := run(*migrateCmd); err != nil {
		log.Fatalf("taskflow-api: %v", err)
	}
}

// run loads the configuration, then either executes a migration command or
// serves HTTP until SIGINT/SIGTERM.
func run(migrateCmd string) error {
	cfg, l, err := initializeApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if migrateCmd != "" {
		return handleMigrations(ctx, cfg, migrateCmd, l)
	}

	db, err := setupAppDatabase(ctx, cfg.Database, l)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, l, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}

// initializeApp loads configuration and sets up the process logger.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("cache_backend", cfg.Cache.Backend),
		slog.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		slog.Bool("events_enabled", cfg.Events.Enabled))

	return cfg, l, nil
}
