package main

import (
	"context"
	"flag"
	"log"
	"os"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/migrate"
)

func main() {
	down := flag.Bool("down", false, "revert the most recent migration instead of applying")
	flag.Parse()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, db.OptionsFrom(cfg, logger))
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if *down {
		if err := migrate.Rollback(ctx, pool); err != nil {
			logger.Fatalf("rollback migration: %v", err)
		}
	} else if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	version, dirty, err := migrate.Version(ctx, pool)
	if err != nil {
		logger.Fatalf("read version: %v", err)
	}
	logger.Printf("schema version=%d dirty=%t", version, dirty)
}
