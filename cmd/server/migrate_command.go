package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"devcycle/internal/platform/db"
	"devcycle/internal/platform/logging"
)

func newMigrateCommand() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			logging.Setup(os.Stderr, cfg.LogLevel, cfg.Environment)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if seed {
				if err := db.Seed(ctx, pool); err != nil {
					return fmt.Errorf("seed: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "Insert demo catalog data after migrating")
	return cmd
}
