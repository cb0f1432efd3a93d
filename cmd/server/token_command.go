package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"devcycle/internal/domain/auth"
)

func newTokenCommand() *cobra.Command {
	var userID int64
	var role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if strings.TrimSpace(cfg.JWTSecret) == "" {
				return errors.New("JWT_SECRET is required")
			}
			if cfg.Environment == "production" {
				return errors.New("token issuing is disabled in production")
			}
			if userID <= 0 {
				return errors.New("--user must be positive")
			}
			if _, ok := auth.RolePermissions[role]; !ok {
				return fmt.Errorf("unknown role %q", role)
			}

			token, err := auth.GenerateToken(cfg.JWTSecret, auth.Claims{UserID: userID, RoleName: role}, ttl)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User id placed in the token")
	cmd.Flags().StringVar(&role, "role", auth.RoleEmployee, "Role: employee, supervisor or hr")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}
