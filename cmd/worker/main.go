package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galleryworks/atelier/internal"
	"github.com/galleryworks/atelier/internal/email"
	"github.com/galleryworks/atelier/internal/notify"
	"github.com/galleryworks/atelier/internal/postgres"
	"github.com/galleryworks/atelier/internal/telemetry"
	"github.com/galleryworks/atelier/internal/worker"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool, logger)

	queue, err := notify.NewNATSQueue(cfg.NatsURL, logger)
	if err != nil {
		return fmt.Errorf("failed to connect notification queue: %w", err)
	}
	defer queue.Close()

	sender := email.NewSMTPSender(&cfg.SMTP)
	receipts, err := email.NewReceiptService(sender, logger)
	if err != nil {
		return fmt.Errorf("failed to create receipt service: %w", err)
	}

	telemetry.InitBusinessMetrics("atelier_worker")

	w := worker.New(queue.Conn(), store, receipts, worker.Config{}, logger)
	return w.Start(ctx)
}
