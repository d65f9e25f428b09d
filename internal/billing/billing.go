// Package billing wraps the external payment provider behind a small
// interface so the checkout and reconciliation paths never touch the Stripe
// SDK directly.
package billing

import (
	"context"
	"time"
)

// Event types the reconciliation path cares about.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentCanceled  = "payment_intent.canceled"
)

// Provider defines the interface for payment processing.
// Implementations can use Stripe, PayPal, Square, etc.
type Provider interface {
	// CreatePaymentIntent creates a payment intent for a one-time charge.
	// Returns the intent with a client secret for frontend confirmation.
	CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// GetPaymentIntent retrieves an existing payment intent.
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)

	// VerifyWebhookEvent validates the provider's cryptographic signature
	// over the raw payload and parses the event. Unsigned or tampered
	// payloads are rejected with ErrInvalidSignature and never processed.
	VerifyWebhookEvent(payload []byte, signatureHeader string) (*Event, error)

	// RefundPayment refunds a completed payment, in full when AmountCents
	// is zero. Used by the return workflow on approval.
	RefundPayment(ctx context.Context, params RefundParams) (*Refund, error)
}

// CreatePaymentIntentParams contains parameters for creating a payment intent.
type CreatePaymentIntentParams struct {
	// AmountCents is the charge amount in the smallest currency unit,
	// computed exclusively from the catalog (never client-submitted).
	AmountCents int64

	// Currency code (ISO 4217) - e.g., "usd".
	Currency string

	// ReceiptEmail prefills the customer email in the payment sheet.
	ReceiptEmail string

	// Description appears on the customer's statement and in the dashboard.
	Description string

	// Metadata carries the reconciliation snapshot: cart id, identity
	// channel, item manifest, and the totals breakdown. It is the only
	// trustworthy signal available at webhook time.
	Metadata map[string]string

	// IdempotencyKey prevents duplicate intents for the same checkout.
	IdempotencyKey string
}

// PaymentIntent represents a charge intent at the provider.
type PaymentIntent struct {
	// ID is the provider's payment reference (pi_...). It doubles as the
	// reconciliation idempotency key.
	ID string

	// ClientSecret is used by the frontend to confirm payment.
	ClientSecret string

	AmountCents int64
	Currency    string

	// Status: requires_payment_method, requires_confirmation, succeeded, ...
	Status string

	// Metadata passed during creation, echoed back on webhook events.
	Metadata map[string]string

	ReceiptEmail string
	CreatedAt    time.Time
}

// Event is a verified webhook event.
type Event struct {
	ID   string
	Type string

	// PaymentIntent is populated for payment_intent.* events.
	PaymentIntent *PaymentIntent
}

// RefundParams contains parameters for creating a refund.
type RefundParams struct {
	PaymentIntentID string
	AmountCents     int64  // 0 refunds the full amount
	Reason          string // "duplicate", "fraudulent", "requested_by_customer"
	Metadata        map[string]string
}

// Refund represents a payment refund.
type Refund struct {
	ID          string
	PaymentID   string
	AmountCents int64
	Status      string // succeeded, pending, failed
	CreatedAt   time.Time
}
