package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/config"
	"storefront/internal/importer"
	productrepo "storefront/internal/repository/product"
	productsvc "storefront/internal/service/product"
)

func uploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload products from a JSON or CSV file (use - for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			raw, err := readInput(cmd, path)
			if err != nil {
				return err
			}

			cfg := config.FromEnv()
			logger := newLogger(cmd)
			pool, err := connect(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := productrepo.NewPostgres(pool, logger)
			svc := productsvc.New(repo, importer.New(repo, logger))

			start := time.Now()
			records, err := svc.Upload(cmd.Context(), string(raw))
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %-20s %-8s %d\n", r.Name, r.Category, r.Unit, r.Price)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d products in %s\n", len(records), time.Since(start).Truncate(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "Path to the product file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

func setPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-price <name> <price>",
		Short: "Set one product's price in whole rupees",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("price must be a whole number: %w", err)
			}

			cfg := config.FromEnv()
			logger := newLogger(cmd)
			pool, err := connect(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := productrepo.NewPostgres(pool, logger)
			if err := productsvc.New(repo, nil).UpdatePrice(cmd.Context(), args[0], price); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now costs %d\n", args[0], price)
			return nil
		},
	}
}
