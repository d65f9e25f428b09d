package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/emberbean/internal"
	"github.com/dukerupert/emberbean/internal/billing"
	"github.com/dukerupert/emberbean/internal/handler"
	"github.com/dukerupert/emberbean/internal/jobs"
	"github.com/dukerupert/emberbean/internal/postgres"
	"github.com/dukerupert/emberbean/internal/service"
	"github.com/dukerupert/emberbean/internal/shipping"
	"github.com/dukerupert/emberbean/internal/tax"
	"github.com/dukerupert/emberbean/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig()
	if err != nil {
		return err
	}
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	if err := migrate(cfg.DatabaseURL); err != nil {
		return err
	}
	logger.Info().Msg("migrations applied")

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	store := postgres.NewStore(pool)
	catalog := postgres.NewCatalog(store)

	provider, err := newBillingProvider(cfg, logger)
	if err != nil {
		return err
	}

	publisher := newPublisher(cfg, logger)

	taxPolicy, err := tax.FromRate(cfg.TaxRate)
	if err != nil {
		return err
	}
	quoter := shipping.NewFlatRateQuoter(cfg.ShippingFlatCents)

	telemetry.InitBusiness("emberbean")

	h := &handler.Handler{
		Cart:        service.NewCartService(store, catalog, logger),
		Checkout:    service.NewCheckoutService(store, catalog, provider, taxPolicy, quoter, "usd", logger),
		Reconciler:  service.NewReconciler(store, publisher, cfg.OrderNumberPrefix, logger),
		Fulfillment: service.NewFulfillmentService(store, publisher, logger),
		Returns:     service.NewReturnService(store, provider, publisher, logger),
		Store:       store,
		Billing:     provider,
		Logger:      logger,
	}

	e := echo.New()
	e.HideBanner = true
	h.Register(e)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// migrate runs goose over a short-lived database/sql connection; the rest of
// the process talks native pgx.
func migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()
	return internal.RunMigrations(db)
}

// newBillingProvider returns Stripe when credentials are configured, and the
// deterministic mock otherwise. Config validation already guarantees real
// credentials outside development.
func newBillingProvider(cfg *internal.Config, logger zerolog.Logger) (billing.Provider, error) {
	if cfg.Stripe.SecretKey != "" {
		return billing.NewStripeProvider(billing.StripeConfig{
			APIKey:        cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
		})
	}
	logger.Warn().Msg("no stripe credentials; using mock billing provider")
	return billing.NewMockProvider(cfg.Stripe.WebhookSecret), nil
}

// newPublisher connects to NATS. Notifications are best-effort, so a broker
// outage degrades to "no emails" rather than refusing to boot.
func newPublisher(cfg *internal.Config, logger zerolog.Logger) jobs.Publisher {
	conn, err := nats.Connect(cfg.NATS.URL, nats.Name("emberbean-server"))
	if err != nil {
		logger.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("nats unavailable; notifications disabled")
		return nil
	}
	return jobs.NewNATSPublisher(conn, cfg.NATS.Subject)
}
