package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/importer"
	"storefront/internal/payment"
	categoryrepo "storefront/internal/repository/category"
	"storefront/internal/repository/kv"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	"storefront/internal/service/admin"
	cartsvc "storefront/internal/service/cart"
	categorysvc "storefront/internal/service/category"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	"storefront/internal/watermark"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, db.OptionsFrom(cfg, logger))
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	directory, err := loadDirectory(cfg)
	if err != nil {
		logger.Fatalf("load payees: %v", err)
	}
	if !directory.Configured() {
		logger.Printf("payment directory is empty, orders will be taken without payment details")
	}
	if cfg.AdminJWTSecret == "" {
		logger.Printf("ADMIN_JWT_SECRET is not set, admin routes will reject every request")
	}

	slots := kv.NewPostgres(dbpool, logger)
	productRepo := productrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)

	productService := productsvc.New(productRepo, importer.New(productRepo, logger))
	categoryService := categorysvc.New(categoryrepo.NewPostgres(dbpool))
	cartService := cartsvc.New(slots, productRepo, logger)
	orderService := ordersvc.New(orderRepo, cartService, productRepo, directory, watermark.New(slots, logger), logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		ProductSvc:            productService,
		CategorySvc:           categoryService,
		CartSvc:               cartService,
		OrderSvc:              orderService,
		Tokens:                admin.NewTokenManager(cfg.AdminJWTSecret),
		CORSAllowOrigins:      cfg.CORSAllowOrigins,
		CheckoutRatePerMinute: cfg.CheckoutRatePerMinute,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

func loadDirectory(cfg config.Config) (payment.Directory, error) {
	if cfg.PayeesFile == "" {
		return payment.DefaultDirectory(cfg.MerchantName), nil
	}
	return payment.LoadDirectory(cfg.PayeesFile, cfg.MerchantName)
}
