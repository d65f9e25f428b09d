package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRendersTemplates(t *testing.T) {
	sender := &LogSender{}
	svc := NewService(sender, "orders@emberbean.coffee", "EmberBean")
	ctx := context.Background()

	err := svc.Send(ctx, KindOrderConfirmation, "guest@example.com", TemplateData{
		OrderNumber:  "EB-2026-000042",
		TotalDisplay: FormatCents(4536),
	})
	require.NoError(t, err)

	require.Len(t, sender.Sent, 1)
	sent := sender.Sent[0]
	assert.Equal(t, "guest@example.com", sent.To)
	assert.Equal(t, "EmberBean <orders@emberbean.coffee>", sent.From)
	assert.Contains(t, sent.Subject, "EB-2026-000042")
	assert.Contains(t, sent.TextBody, "$45.36")
}

func TestServiceShipmentTemplate(t *testing.T) {
	sender := &LogSender{}
	svc := NewService(sender, "orders@emberbean.coffee", "EmberBean")

	err := svc.Send(context.Background(), KindShipment, "guest@example.com", TemplateData{
		OrderNumber:     "EB-2026-000042",
		TrackingCarrier: "USPS",
		TrackingNumber:  "9400100000000000000000",
		TrackingURL:     "https://tools.usps.com/track",
	})
	require.NoError(t, err)

	require.Len(t, sender.Sent, 1)
	assert.Contains(t, sender.Sent[0].TextBody, "USPS")
	assert.Contains(t, sender.Sent[0].TextBody, "https://tools.usps.com/track")
}

func TestServiceRejectsUnknownKind(t *testing.T) {
	svc := NewService(&LogSender{}, "orders@emberbean.coffee", "EmberBean")
	err := svc.Send(context.Background(), Kind("marketing_blast"), "guest@example.com", TemplateData{})
	assert.Error(t, err)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$0.05", FormatCents(5))
	assert.Equal(t, "$12.00", FormatCents(1200))
	assert.Equal(t, "$45.36", FormatCents(4536))
}
