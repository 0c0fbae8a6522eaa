package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/config"
	"storefront/internal/service/admin"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token signed with ADMIN_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, _ := cmd.Flags().GetDuration("ttl")
			subject, _ := cmd.Flags().GetString("subject")
			token, exp, err := admin.NewTokenManager(config.FromEnv().AdminJWTSecret).Issue(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	cmd.Flags().String("subject", "admin", "Token subject")
	return cmd
}
