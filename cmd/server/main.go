package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/galleryworks/atelier/internal"
	"github.com/galleryworks/atelier/internal/billing"
	"github.com/galleryworks/atelier/internal/handler"
	"github.com/galleryworks/atelier/internal/handler/storefront"
	"github.com/galleryworks/atelier/internal/handler/webhook"
	"github.com/galleryworks/atelier/internal/middleware"
	"github.com/galleryworks/atelier/internal/notify"
	"github.com/galleryworks/atelier/internal/postgres"
	"github.com/galleryworks/atelier/internal/router"
	"github.com/galleryworks/atelier/internal/routes"
	"github.com/galleryworks/atelier/internal/service"
	"github.com/galleryworks/atelier/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := internal.NewConfig(slog.Default())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Migrations run over database/sql; the app itself uses the pool.
	migrationDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	if err := internal.RunMigrations(migrationDB); err != nil {
		migrationDB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	migrationDB.Close()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	store := postgres.NewStore(pool, logger)

	provider, err := billing.NewStripeProvider(&cfg.Stripe, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize billing provider: %w", err)
	}

	queue, err := notify.NewNATSQueue(cfg.NatsURL, logger)
	if err != nil {
		return fmt.Errorf("failed to connect notification queue: %w", err)
	}
	defer queue.Close()

	telemetry.InitBusinessMetrics("atelier")
	metrics := middleware.NewMetrics("atelier")

	checkoutService := service.NewCheckoutService(store, provider, service.CheckoutConfig{
		SuccessURL: cfg.BaseURL + "/checkout/success",
		CancelURL:  cfg.BaseURL + "/checkout/cancelled",
	}, logger)
	fulfillmentService := service.NewFulfillmentService(store, queue, logger)

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		router.Logger(logger),
	)

	routes.RegisterStorefrontRoutes(r, routes.StorefrontDeps{
		Checkout: storefront.NewCheckoutHandler(checkoutService, logger),
		Orders:   storefront.NewOrderHandler(store, logger),
	})
	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{
		Stripe: webhook.NewStripeHandler(provider, fulfillmentService, logger),
	})

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		handler.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle(http.MethodGet, "/metrics", metrics.Handler())

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("server listening", "addr", addr, "env", cfg.Env)
	return http.ListenAndServe(addr, r)
}
