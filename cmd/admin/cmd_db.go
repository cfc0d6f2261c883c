package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/GTDGit/gtd_backoffice/internal/config"
	"github.com/GTDGit/gtd_backoffice/internal/database"
	"github.com/GTDGit/gtd_backoffice/internal/logger"
)

// bootDB loads config and opens the database connection.
func bootDB(ctx context.Context) (*config.Config, *sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.Setup(cfg.Env, cfg.LogLevel)

	db, err := database.Connect(ctx, &cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

// backoffice-admin migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "Running migrations...")
		return database.RunMigrations(db.DB, cfg.DB.MigrationsPath)
	},
}

// backoffice-admin migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "Rolling back last migration...")
		return database.RollbackMigration(db.DB, cfg.DB.MigrationsPath)
	},
}
