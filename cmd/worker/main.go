// The worker consumes queued notification jobs and delivers email. It runs
// separately from the API server so mail provider latency never touches the
// request path.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukerupert/emberbean/internal"
	"github.com/dukerupert/emberbean/internal/email"
	"github.com/dukerupert/emberbean/internal/jobs"
	"github.com/nats-io/nats.go"
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

	conn, err := nats.Connect(cfg.NATS.URL, nats.Name("emberbean-worker"))
	if err != nil {
		return fmt.Errorf("failed to connect to nats: %w", err)
	}
	defer conn.Close()

	var sender email.Sender
	if cfg.Email.PostmarkAPIKey != "" {
		sender = email.NewPostmarkSender(cfg.Email.PostmarkAPIKey)
	} else {
		logger.Warn().Msg("no postmark api key; emails will be logged, not delivered")
		sender = &email.LogSender{Logf: func(format string, args ...interface{}) {
			logger.Info().Msgf(format, args...)
		}}
	}
	mailer := email.NewService(sender, cfg.Email.FromAddress, cfg.Email.FromName)

	worker := jobs.NewMailWorker(conn, cfg.NATS.Subject, mailer, logger)
	if err := worker.Start(); err != nil {
		return fmt.Errorf("failed to start mail worker: %w", err)
	}
	defer worker.Stop()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	return nil
}
