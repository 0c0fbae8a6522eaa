package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"storefront/internal/config"
	"storefront/internal/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "catalog",
		Short:         "Storefront admin tasks: catalog upload, prices, new-order checks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log repository activity to stderr")

	rootCmd.AddCommand(uploadCmd())
	rootCmd.AddCommand(setPriceCmd())
	rootCmd.AddCommand(ordersCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command) *log.Logger {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		return log.New(os.Stderr, "[catalog] ", log.LstdFlags|log.LUTC)
	}
	return log.New(io.Discard, "", 0)
}

func connect(ctx context.Context, cfg config.Config, logger *log.Logger) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg.DBConnString, db.OptionsFrom(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return pool, nil
}
