package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/galleryworks/atelier/internal/billing"
	"github.com/galleryworks/atelier/internal/email"
)

// Config is the full runtime configuration, loaded from the environment
// with optional .env overrides for local development.
type Config struct {
	Env         string
	LogLevel    string
	Port        uint16
	DatabaseUrl string

	// BaseURL is the public origin of this service, used to build the
	// checkout success and cancel redirect URLs.
	BaseURL string

	NatsURL string
	Stripe  billing.StripeConfig
	SMTP    email.SMTPConfig
}

// NewConfig loads configuration from the environment. A missing database
// URL is fatal; missing payment credentials only warn so that the worker
// binary and local tooling can start without them.
func NewConfig(logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loadEnvFile(logger)

	cfg := &Config{
		Env:         getEnv("ENV", "dev"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Port:        getEnvInt("PORT", 8080),
		DatabaseUrl: getEnv("DATABASE_URL", ""),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		NatsURL:     getEnv("NATS_URL", "nats://localhost:4222"),
		Stripe: billing.StripeConfig{
			APIKey:         getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
			TimeoutSeconds: int(getEnvInt("STRIPE_TIMEOUT_SECONDS", 30)),
		},
		SMTP: email.SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     int(getEnvInt("SMTP_PORT", 1025)),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "orders@atelier.local"),
			FromName: getEnv("SMTP_FROM_NAME", "Atelier"),
		},
	}

	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.Env {
	case "dev", "staging", "prod":
	default:
		logger.Warn("unrecognized ENV value, expected dev/staging/prod", "env", cfg.Env)
	}

	if cfg.Stripe.APIKey == "" {
		logger.Warn("STRIPE_SECRET_KEY not set; checkout and webhooks will be unavailable")
	}
	if cfg.Stripe.WebhookSecret == "" {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set; webhook verification will fail")
	}

	return cfg, nil
}

// loadEnvFile looks for a .env file in the working directory and its
// parents, so binaries run from cmd/ subdirectories still find it.
func loadEnvFile(logger *slog.Logger) {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				logger.Warn("failed to load .env file", "path", path, "error", err)
			}
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue uint16) uint16 {
	if value := os.Getenv(key); value != "" {
		var intValue uint16
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}
