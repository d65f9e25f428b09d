package internal

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the server and worker.
type Config struct {
	Env         string
	LogLevel    string
	Port        int
	DatabaseURL string

	OrderNumberPrefix string

	// TaxRate is an injectable policy value, not a hardcoded constant.
	// 0 disables tax entirely.
	TaxRate float64

	// ShippingFlatCents is the flat-rate shipping charge per order.
	ShippingFlatCents int64

	Stripe StripeConfig
	NATS   NATSConfig
	Email  EmailConfig
}

// StripeConfig holds payment provider credentials.
type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
}

// NATSConfig holds the notification queue connection settings.
type NATSConfig struct {
	URL string

	// Subject carries best-effort notification jobs to the mail worker.
	Subject string
}

// EmailConfig holds outbound mail settings.
type EmailConfig struct {
	PostmarkAPIKey string
	FromAddress    string
	FromName       string
}

// NewConfig loads configuration from the environment. In development a .env
// file is loaded first if present.
func NewConfig() (*Config, error) {
	// .env is a developer convenience; absence is not an error.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 3000)
	v.SetDefault("ORDER_NUMBER_PREFIX", "EB")
	v.SetDefault("TAX_RATE", 0.0)
	v.SetDefault("SHIPPING_FLAT_CENTS", 795)
	v.SetDefault("NATS_URL", "nats://127.0.0.1:4222")
	v.SetDefault("NATS_NOTIFY_SUBJECT", "notifications.email")
	v.SetDefault("EMAIL_FROM_ADDRESS", "orders@emberbean.coffee")
	v.SetDefault("EMAIL_FROM_NAME", "EmberBean")

	cfg := &Config{
		Env:               v.GetString("ENV"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		Port:              v.GetInt("PORT"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		OrderNumberPrefix: v.GetString("ORDER_NUMBER_PREFIX"),
		TaxRate:           v.GetFloat64("TAX_RATE"),
		ShippingFlatCents: v.GetInt64("SHIPPING_FLAT_CENTS"),
		Stripe: StripeConfig{
			SecretKey:      v.GetString("STRIPE_SECRET_KEY"),
			PublishableKey: v.GetString("STRIPE_PUBLISHABLE_KEY"),
			WebhookSecret:  v.GetString("STRIPE_WEBHOOK_SECRET"),
		},
		NATS: NATSConfig{
			URL:     v.GetString("NATS_URL"),
			Subject: v.GetString("NATS_NOTIFY_SUBJECT"),
		},
		Email: EmailConfig{
			PostmarkAPIKey: v.GetString("POSTMARK_API_KEY"),
			FromAddress:    v.GetString("EMAIL_FROM_ADDRESS"),
			FromName:       v.GetString("EMAIL_FROM_NAME"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Env != "development" {
		if cfg.Stripe.SecretKey == "" || cfg.Stripe.WebhookSecret == "" {
			return nil, fmt.Errorf("STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET are required")
		}
	}
	if cfg.TaxRate < 0 || cfg.TaxRate > 1 {
		return nil, fmt.Errorf("TAX_RATE must be between 0 and 1, got %v", cfg.TaxRate)
	}

	return cfg, nil
}
