package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"devcycle/internal/app/server"
	"devcycle/internal/platform/logging"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if addr != "" {
				cfg.Addr = addr
			}
			logging.Setup(os.Stderr, cfg.LogLevel, cfg.Environment)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides APP_ADDR)")
	return cmd
}
