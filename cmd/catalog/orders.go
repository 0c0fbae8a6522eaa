package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/repository/kv"
	orderrepo "storefront/internal/repository/order"
	"storefront/internal/watermark"
)

// The orders commands keep their last-seen marker in a local sqlite file,
// so each machine tracks what its operator has already looked at.
func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Check for orders placed since you last looked",
	}
	cmd.PersistentFlags().String("state", "", "Path to the local state file (default $STATE_DB)")
	cmd.AddCommand(ordersNewCmd(), ordersSeenCmd(), ordersResetCmd())
	return cmd
}

func openTracker(cmd *cobra.Command, cfg config.Config) (*watermark.Tracker, func() error, error) {
	path, _ := cmd.Flags().GetString("state")
	if path == "" {
		path = cfg.StateDBPath
	}
	store, err := kv.OpenSQLite(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open state %s: %w", path, err)
	}
	return watermark.New(store, newLogger(cmd)), store.Close, nil
}

func listOrders(cmd *cobra.Command, cfg config.Config) ([]domain.Order, error) {
	logger := newLogger(cmd)
	pool, err := connect(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	defer pool.Close()
	return orderrepo.NewPostgres(pool, logger).List(cmd.Context())
}

func records(orders []domain.Order) []watermark.Record {
	out := make([]watermark.Record, 0, len(orders))
	for _, o := range orders {
		out = append(out, watermark.Record{ID: fmt.Sprint(o.ID), Timestamp: o.Timestamp})
	}
	return out
}

func ordersNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "List orders newer than the last-seen marker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			tracker, closeFn, err := openTracker(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			orders, err := listOrders(cmd, cfg)
			if err != nil {
				return err
			}
			wm := tracker.Get(cmd.Context())
			n := watermark.CountNew(records(orders), time.Nanosecond, wm)
			fmt.Fprintf(cmd.OutOrStdout(), "%d new orders\n", n)
			for _, o := range orders {
				if wm != nil && !watermark.After(o.Timestamp, time.Nanosecond, wm) {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  #%d  %s  %s  %d\n", o.ID, o.CreatedAt().Local().Format("02 Jan 15:04"), o.CustomerName, o.TotalAmount)
			}
			return nil
		},
	}
}

func ordersSeenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seen",
		Short: "Move the last-seen marker to the newest order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			tracker, closeFn, err := openTracker(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			orders, err := listOrders(cmd, cfg)
			if err != nil {
				return err
			}
			latest, ok := watermark.Latest(records(orders))
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no orders yet")
				return nil
			}
			wm := watermark.For(latest, time.Nanosecond)
			if err := tracker.Set(cmd.Context(), wm.TimestampMillis, wm.LastOrderID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked orders up to #%s as seen\n", wm.LastOrderID)
			return nil
		},
	}
}

func ordersResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the last-seen marker so every order counts as new",
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, closeFn, err := openTracker(cmd, config.FromEnv())
			if err != nil {
				return err
			}
			defer closeFn()
			return tracker.Clear(cmd.Context())
		},
	}
}
