package main

import (
	"log/slog"

	"github.com/prior-it/cepcache/bootstrap"
	"github.com/prior-it/cepcache/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		bootstrap.Logger(cfg)
		db, err := bootstrap.Database(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		db.Close()
		slog.Info("Database is up to date", "schema", cfg.Database.Schema)
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		bootstrap.Logger(cfg)
		db, err := postgres.NewDB(cmd.Context(), cfg.Database.URL, postgres.WithSchema(cfg.Database.Schema))
		if err != nil {
			return err
		}
		defer db.Close()
		return db.MigrateDown(cmd.Context())
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
