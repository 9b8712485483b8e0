package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"casepay/internal/infrastructure/postgres"
)

func sweepCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Advance cases whose payment completed but which are still pending_payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Sweep.BatchSize
			}

			db, err := postgres.Open(cfg.Database)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			app := newCore(cfg, db, prometheus.NewRegistry())
			defer app.Close()

			resumed, err := app.reconciler.ResumeTornWrites(cmd.Context(), limit)
			fmt.Fprintf(cmd.OutOrStdout(), "resumed %d case(s)\n", resumed)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum payments to examine (default SWEEP_BATCH_SIZE)")
	return cmd
}
