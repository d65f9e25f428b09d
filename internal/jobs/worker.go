package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dukerupert/emberbean/internal/email"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// MailWorker consumes queued notifications and delivers them through the
// email service. Delivery failures are logged and dropped: the mailer is a
// best-effort collaborator and must never feed errors back into checkout or
// webhook processing.
type MailWorker struct {
	conn    *nats.Conn
	subject string
	mailer  *email.Service
	logger  zerolog.Logger

	sub *nats.Subscription
}

// NewMailWorker creates a worker bound to the notification subject.
func NewMailWorker(conn *nats.Conn, subject string, mailer *email.Service, logger zerolog.Logger) *MailWorker {
	return &MailWorker{
		conn:    conn,
		subject: subject,
		mailer:  mailer,
		logger:  logger.With().Str("component", "mail_worker").Logger(),
	}
}

// Start subscribes to the notification subject. Messages are processed one
// at a time per subscription callback.
func (w *MailWorker) Start() error {
	sub, err := w.conn.Subscribe(w.subject, w.handle)
	if err != nil {
		return err
	}
	w.sub = sub
	w.logger.Info().Str("subject", w.subject).Msg("mail worker started")
	return nil
}

// Stop drains the subscription.
func (w *MailWorker) Stop() {
	if w.sub != nil {
		if err := w.sub.Drain(); err != nil {
			w.logger.Warn().Err(err).Msg("failed to drain subscription")
		}
	}
}

func (w *MailWorker) handle(msg *nats.Msg) {
	var n Notification
	if err := json.Unmarshal(msg.Data, &n); err != nil {
		w.logger.Error().Err(err).Msg("dropping malformed notification")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := w.mailer.Send(ctx, n.Kind, n.Recipient, n.Data); err != nil {
		// Best-effort: log and drop. Order state is already durable.
		w.logger.Error().
			Err(err).
			Str("kind", string(n.Kind)).
			Str("recipient", n.Recipient).
			Msg("notification delivery failed")
		return
	}

	w.logger.Debug().
		Str("kind", string(n.Kind)).
		Str("recipient", n.Recipient).
		Msg("notification delivered")
}
