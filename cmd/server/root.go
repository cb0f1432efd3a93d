package main

import (
	"github.com/spf13/cobra"

	"devcycle/internal/platform/config"
)

// loadConfig is swapped in tests.
var loadConfig = config.Load

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "devcycle-server",
		Short:         "Competency leveling and development plan service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newTokenCommand())

	return rootCmd
}
