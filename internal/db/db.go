package db

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/config"
)

// Options tune the pool. Zero values fall back to the defaults below.
type Options struct {
	MaxConns      int
	Attempts      int
	RetryInterval time.Duration
	Logger        *log.Logger
}

// OptionsFrom maps runtime config onto pool options.
func OptionsFrom(cfg config.Config, logger *log.Logger) Options {
	return Options{MaxConns: cfg.DBMaxConns, Attempts: cfg.DBConnectAttempts, Logger: logger}
}

// Connect opens a pgx pool and pings it, retrying while the database is
// still starting up.
func Connect(ctx context.Context, dsn string, opts Options) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		err = ping(ctx, pool)
		if err == nil {
			return pool, nil
		}
		if attempt >= opts.Attempts {
			break
		}
		opts.Logger.Printf("db: ping failed attempt=%d/%d error=%v", attempt, opts.Attempts, err)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(opts.RetryInterval):
		}
	}
	pool.Close()
	return nil, fmt.Errorf("ping db after %d attempts: %w", opts.Attempts, err)
}

func ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return pool.Ping(pingCtx)
}
