package billing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProviderVerifiesSignatures(t *testing.T) {
	provider := NewMockProvider("whsec_test")

	payload, err := json.Marshal(Event{
		ID:   "evt_001",
		Type: EventPaymentSucceeded,
		PaymentIntent: &PaymentIntent{
			ID:          "pi_001",
			AmountCents: 4536,
			Metadata:    map[string]string{"cart_id": "abc"},
		},
	})
	require.NoError(t, err)

	event, err := provider.VerifyWebhookEvent(payload, provider.Sign(payload))
	require.NoError(t, err)
	assert.Equal(t, "evt_001", event.ID)
	require.NotNil(t, event.PaymentIntent)
	assert.Equal(t, int64(4536), event.PaymentIntent.AmountCents)

	// A wrong signature, or a tampered payload under a stale signature,
	// is rejected before parsing.
	_, err = provider.VerifyWebhookEvent(payload, "bad")
	assert.True(t, errors.Is(err, ErrInvalidSignature))

	sig := provider.Sign(payload)
	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] ^= 0xff
	_, err = provider.VerifyWebhookEvent(tampered, sig)
	assert.True(t, errors.Is(err, ErrInvalidSignature))
}
