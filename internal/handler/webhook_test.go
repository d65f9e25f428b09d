package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/emberbean/internal/billing"
	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/memstore"
	"github.com/dukerupert/emberbean/internal/service"
	"github.com/dukerupert/emberbean/internal/shipping"
	"github.com/dukerupert/emberbean/internal/tax"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	echo     *echo.Echo
	store    *memstore.Store
	provider *billing.MockProvider
	logs     *bytes.Buffer
}

// newTestApp wires the full handler stack over in-memory collaborators.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := memstore.New()
	provider := billing.NewMockProvider("whsec_test")
	logs := &bytes.Buffer{}
	logger := zerolog.New(logs)

	taxPolicy, err := tax.NewPercentagePolicy(0.08)
	require.NoError(t, err)

	h := &Handler{
		Cart:        service.NewCartService(store, store, logger),
		Checkout:    service.NewCheckoutService(store, store, provider, taxPolicy, shipping.NewFlatRateQuoter(500), "usd", logger),
		Reconciler:  service.NewReconciler(store, nil, "EB", logger),
		Fulfillment: service.NewFulfillmentService(store, nil, logger),
		Returns:     service.NewReturnService(store, provider, nil, logger),
		Store:       store,
		Billing:     provider,
		Logger:      logger,
	}

	e := echo.New()
	h.Register(e)

	return &testApp{echo: e, store: store, provider: provider, logs: logs}
}

// paidEvent builds a signed payment_intent.succeeded payload over a seeded
// guest cart.
func (app *testApp) paidEvent(t *testing.T) (payload []byte, signature string, cartID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	product := domain.Product{
		ID:         uuid.New(),
		Name:       "Ethiopia Yirgacheffe",
		PriceCents: 1500,
		InStock:    true,
		Active:     true,
	}
	app.store.SeedProduct(product)

	cart, err := app.store.CreateCart(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, app.store.AddCartItem(ctx, cart.ID, product.ID, 2))

	intent, err := app.provider.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{
		AmountCents: 3500,
		Currency:    "usd",
		Metadata: map[string]string{
			"cart_id":        cart.ID.String(),
			"guest_email":    "guest@example.com",
			"items":          `[{"product_id":"` + product.ID.String() + `","name":"Ethiopia Yirgacheffe","quantity":2,"unit_price_cents":1500}]`,
			"subtotal_cents": "3000",
			"discount_cents": "0",
			"tax_cents":      "0",
			"shipping_cents": "500",
			"total_cents":    "3500",
		},
	})
	require.NoError(t, err)

	intent.Status = "succeeded"
	payload, err = json.Marshal(billing.Event{
		ID:            "evt_test_001",
		Type:          billing.EventPaymentSucceeded,
		PaymentIntent: intent,
	})
	require.NoError(t, err)

	return payload, app.provider.Sign(payload), cart.ID
}

func (app *testApp) postWebhook(payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	app.echo.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	app := newTestApp(t)
	payload, _, _ := app.paidEvent(t)

	rec := app.postWebhook(payload, "deadbeef")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	orders, err := app.store.ListOrders(context.Background(), 100, 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestWebhookMaterializesOrder(t *testing.T) {
	app := newTestApp(t)
	payload, sig, cartID := app.paidEvent(t)

	rec := app.postWebhook(payload, sig)
	assert.Equal(t, http.StatusOK, rec.Code)

	orders, err := app.store.ListOrders(context.Background(), 100, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(3500), orders[0].TotalCents)
	assert.Equal(t, "guest@example.com", orders[0].GuestEmail)

	cart, err := app.store.GetCart(context.Background(), cartID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestWebhookDuplicateDeliveryStillOK(t *testing.T) {
	app := newTestApp(t)
	payload, sig, _ := app.paidEvent(t)

	assert.Equal(t, http.StatusOK, app.postWebhook(payload, sig).Code)
	assert.Equal(t, http.StatusOK, app.postWebhook(payload, sig).Code)

	orders, err := app.store.ListOrders(context.Background(), 100, 0)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestWebhookStoreFailureAsksForRedelivery(t *testing.T) {
	app := newTestApp(t)
	payload, sig, _ := app.paidEvent(t)

	app.store.ClearCartErr = errors.New("deadlock detected")
	rec := app.postWebhook(payload, sig)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// Redelivery after the fault clears succeeds.
	app.store.ClearCartErr = nil
	rec = app.postWebhook(payload, sig)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookFailureLogsCarryRequestID(t *testing.T) {
	app := newTestApp(t)
	payload, sig, _ := app.paidEvent(t)

	app.store.ClearCartErr = errors.New("deadlock detected")
	rec := app.postWebhook(payload, sig)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// The 5xx log line is traceable back to this exact request.
	reqID := rec.Header().Get(echo.HeaderXRequestID)
	require.NotEmpty(t, reqID)
	assert.Contains(t, app.logs.String(), `"request_id":"`+reqID+`"`)
}

func TestWebhookAcknowledgesFailedPayments(t *testing.T) {
	app := newTestApp(t)

	payload, err := json.Marshal(billing.Event{
		ID:            "evt_test_002",
		Type:          billing.EventPaymentFailed,
		PaymentIntent: &billing.PaymentIntent{ID: "pi_failed"},
	})
	require.NoError(t, err)

	rec := app.postWebhook(payload, app.provider.Sign(payload))
	assert.Equal(t, http.StatusOK, rec.Code)

	orders, err := app.store.ListOrders(context.Background(), 100, 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
