package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MockProvider is a deterministic in-memory Provider for tests and local
// development. Webhook signatures are HMAC-SHA256 over the payload; use Sign
// to produce a valid header.
type MockProvider struct {
	mu     sync.Mutex
	secret string
	seq    int

	intents map[string]*PaymentIntent

	// CreateErr, when set, is returned by CreatePaymentIntent.
	CreateErr error
	// RefundErr, when set, is returned by RefundPayment.
	RefundErr error

	Refunds []RefundParams
}

// Compile-time check that MockProvider implements Provider.
var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock provider with the given webhook secret.
func NewMockProvider(secret string) *MockProvider {
	return &MockProvider{
		secret:  secret,
		intents: make(map[string]*PaymentIntent),
	}
}

// CreatePaymentIntent records and returns a fake intent.
func (m *MockProvider) CreatePaymentIntent(_ context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	pi := &PaymentIntent{
		ID:           fmt.Sprintf("pi_mock_%06d", m.seq),
		ClientSecret: fmt.Sprintf("pi_mock_%06d_secret", m.seq),
		AmountCents:  params.AmountCents,
		Currency:     params.Currency,
		Status:       "requires_payment_method",
		Metadata:     params.Metadata,
		ReceiptEmail: params.ReceiptEmail,
		CreatedAt:    time.Now(),
	}
	m.intents[pi.ID] = pi

	return pi, nil
}

// GetPaymentIntent returns a previously created intent.
func (m *MockProvider) GetPaymentIntent(_ context.Context, paymentIntentID string) (*PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pi, ok := m.intents[paymentIntentID]
	if !ok {
		return nil, ErrIntentNotFound
	}
	return pi, nil
}

// VerifyWebhookEvent checks the HMAC signature and decodes the event.
// Payloads are JSON-encoded Event values (see EventPayload).
func (m *MockProvider) VerifyWebhookEvent(payload []byte, signatureHeader string) (*Event, error) {
	if !hmac.Equal([]byte(m.sign(payload)), []byte(signatureHeader)) {
		return nil, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, ErrInvalidSignature
	}
	return &event, nil
}

// RefundPayment records the refund request.
func (m *MockProvider) RefundPayment(_ context.Context, params RefundParams) (*Refund, error) {
	if m.RefundErr != nil {
		return nil, m.RefundErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Refunds = append(m.Refunds, params)
	return &Refund{
		ID:          fmt.Sprintf("re_mock_%06d", len(m.Refunds)),
		PaymentID:   params.PaymentIntentID,
		AmountCents: params.AmountCents,
		Status:      "succeeded",
		CreatedAt:   time.Now(),
	}, nil
}

// Sign computes the signature header for a payload. Tests use this to build
// valid webhook requests.
func (m *MockProvider) Sign(payload []byte) string {
	return m.sign(payload)
}

func (m *MockProvider) sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(m.secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
