// Package jobs carries best-effort notification work from the request path
// to the mail worker over NATS. Publish failures are logged by callers and
// never escalate into transaction rollbacks or webhook error responses.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/emberbean/internal/email"
	"github.com/nats-io/nats.go"
)

// Notification is a queued "send notification" request executed by the mail
// worker.
type Notification struct {
	Kind      email.Kind         `json:"kind"`
	Recipient string             `json:"recipient"`
	Data      email.TemplateData `json:"data"`
}

// Publisher enqueues notifications for asynchronous delivery.
type Publisher interface {
	PublishNotification(ctx context.Context, n Notification) error
}

// NATSPublisher publishes notifications to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// Compile-time check that NATSPublisher implements Publisher.
var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher creates a publisher for the given subject.
func NewNATSPublisher(conn *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

// PublishNotification encodes and publishes a notification.
func (p *NATSPublisher) PublishNotification(_ context.Context, n Notification) error {
	if n.Recipient == "" {
		return fmt.Errorf("notification recipient is required")
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
