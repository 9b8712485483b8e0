package main

import (
	"github.com/spf13/cobra"

	"casepay/internal/infrastructure/migrate"
	"casepay/internal/infrastructure/postgres"
)

func migrateCmd() *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply pending migrations from MIGRATIONS_PATH.

Examples:
  casepay migrate
  casepay migrate --down 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := postgres.Open(cfg.Database)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if down > 0 {
				return migrate.RollbackMigrations(db, cfg.Database.MigrationsPath, down)
			}
			return migrate.RunMigrations(db, cfg.Database.MigrationsPath)
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations instead of applying")
	return cmd
}
