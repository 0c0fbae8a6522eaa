package main

import (
	"context"
	"log"
	"os"

	"storefront/internal/config"
	"storefront/internal/db"
	productrepo "storefront/internal/repository/product"
	"storefront/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, db.OptionsFrom(cfg, logger))
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := seed.Apply(ctx, productrepo.NewPostgres(pool, logger)); err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Println("seed applied")
}
