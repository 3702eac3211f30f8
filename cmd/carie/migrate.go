package main

import (
	"github.com/mohammad-safakhou/carie/internal/server"
	"github.com/spf13/cobra"
)

func migrateCmd(a *app) *cobra.Command {
	var dir, direction string
	var steps int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := server.Migrate(dir, a.cfg.Storage.Postgres.DSN(), direction, steps); err != nil {
				return err
			}
			a.logger.WithField("direction", direction).Info("migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", server.DefaultMigrations, "migrations source")
	cmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return cmd
}
