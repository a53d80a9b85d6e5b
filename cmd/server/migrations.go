package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
)

// handleMigrations runs a single goose command against the configured
// database and returns.
func handleMigrations(ctx context.Context, cfg *config.Config, command string, logger *slog.Logger) error {
	if !slices.Contains(postgres.MigrationCommands, command) {
		return fmt.Errorf("unknown migration command %q (expected one of %v)", command, postgres.MigrationCommands)
	}

	db, err := setupAppDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}()

	return postgres.Migrate(ctx, db, command, logger)
}
