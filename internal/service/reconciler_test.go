package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/emberbean/internal/billing"
	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/email"
	"github.com/dukerupert/emberbean/internal/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paidIntent builds a succeeded intent whose metadata snapshots a guest cart
// with 2x Ethiopia (1500) and 1x Sumatra (700), totals including 500 shipping
// and 336 tax.
func paidIntent(t *testing.T, store *memstore.Store) (*billing.PaymentIntent, *domain.Cart) {
	t.Helper()

	a, b := seedCatalog(store)
	cart := seedCart(t, store, nil, a, b)

	meta, err := encodeManifest(manifest{
		CartID:     cart.ID,
		GuestEmail: "guest@example.com",
		Items: []manifestItem{
			{ProductID: a.ID, Name: a.Name, Quantity: 2, UnitPriceCents: 1500},
			{ProductID: b.ID, Name: b.Name, Quantity: 1, UnitPriceCents: 700},
		},
		SubtotalCents: 3700,
		ShippingCents: 500,
		TaxCents:      336,
		TotalCents:    4536,
	})
	require.NoError(t, err)

	return &billing.PaymentIntent{
		ID:          "pi_test_001",
		AmountCents: 4536,
		Currency:    "usd",
		Status:      "succeeded",
		Metadata:    meta,
	}, cart
}

func newReconciler(store *memstore.Store) (*Reconciler, *fakePublisher) {
	pub := &fakePublisher{}
	r := NewReconciler(store, pub, "EB", testLogger())
	r.now = func() time.Time { return time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC) }
	return r, pub
}

func TestReconcilerCreatesOrderOnce(t *testing.T) {
	store := memstore.New()
	intent, cart := paidIntent(t, store)
	r, pub := newReconciler(store)
	ctx := context.Background()

	order, err := r.CreateOrderFromPaymentIntent(ctx, intent)
	require.NoError(t, err)

	assert.Equal(t, "EB-2026-000001", order.OrderNumber)
	assert.Equal(t, intent.ID, order.PaymentIntentID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "guest@example.com", order.GuestEmail)
	assert.Nil(t, order.UserID)
	assert.Equal(t, int64(4536), order.TotalCents)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(1500), order.Items[0].UnitPriceCents)

	// Cart items were consumed atomically with the order.
	got, err := store.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)

	// One confirmation notification.
	require.Len(t, pub.notes, 1)
	assert.Equal(t, email.KindOrderConfirmation, pub.notes[0].Kind)
	assert.Equal(t, "guest@example.com", pub.notes[0].Recipient)
	assert.Equal(t, "EB-2026-000001", pub.notes[0].Data.OrderNumber)
}

func TestReconcilerDuplicateDeliveryIsNoOp(t *testing.T) {
	store := memstore.New()
	intent, _ := paidIntent(t, store)
	r, pub := newReconciler(store)
	ctx := context.Background()

	first, err := r.CreateOrderFromPaymentIntent(ctx, intent)
	require.NoError(t, err)

	second, err := r.CreateOrderFromPaymentIntent(ctx, intent)
	require.NoError(t, err)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)

	orders, err := store.ListOrders(ctx, 100, 0)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	// No second confirmation email.
	assert.Len(t, pub.notes, 1)
}

func TestReconcilerConcurrentDeliveriesCreateOneOrder(t *testing.T) {
	store := memstore.New()
	intent, cart := paidIntent(t, store)
	r, pub := newReconciler(store)
	ctx := context.Background()

	const deliveries = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	orders := make([]*domain.Order, deliveries)
	errs := make([]error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			orders[i], errs[i] = r.CreateOrderFromPaymentIntent(ctx, intent)
		}(i)
	}
	close(start)
	wg.Wait()

	// Every delivery resolves to the same order, win or lose.
	for i := 0; i < deliveries; i++ {
		require.NoError(t, errs[i], "delivery %d", i)
		require.NotNil(t, orders[i])
		assert.Equal(t, "EB-2026-000001", orders[i].OrderNumber)
	}

	all, err := store.ListOrders(ctx, 100, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	got, err := store.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)

	// Only the winning delivery sends the confirmation.
	assert.Len(t, pub.notes, 1)
}

func TestReconcilerConcurrentIntentsGetDistinctNumbers(t *testing.T) {
	store := memstore.New()
	r, _ := newReconciler(store)
	ctx := context.Background()

	const payments = 6
	intents := make([]*billing.PaymentIntent, payments)
	for i := range intents {
		a, b := seedCatalog(store)
		cart := seedCart(t, store, nil, a, b)
		meta, err := encodeManifest(manifest{
			CartID:     cart.ID,
			GuestEmail: fmt.Sprintf("guest%d@example.com", i),
			Items: []manifestItem{
				{ProductID: a.ID, Name: a.Name, Quantity: 2, UnitPriceCents: 1500},
				{ProductID: b.ID, Name: b.Name, Quantity: 1, UnitPriceCents: 700},
			},
			SubtotalCents: 3700,
			ShippingCents: 500,
			TaxCents:      336,
			TotalCents:    4536,
		})
		require.NoError(t, err)
		intents[i] = &billing.PaymentIntent{
			ID:          fmt.Sprintf("pi_bulk_%03d", i),
			AmountCents: 4536,
			Currency:    "usd",
			Status:      "succeeded",
			Metadata:    meta,
		}
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	orders := make([]*domain.Order, payments)
	errs := make([]error, payments)
	for i := range intents {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			orders[i], errs[i] = r.CreateOrderFromPaymentIntent(ctx, intents[i])
		}(i)
	}
	close(start)
	wg.Wait()

	seen := make(map[string]bool, payments)
	for i := 0; i < payments; i++ {
		require.NoError(t, errs[i], "payment %d", i)
		require.NotNil(t, orders[i])
		assert.False(t, seen[orders[i].OrderNumber], "order number %s allocated twice", orders[i].OrderNumber)
		seen[orders[i].OrderNumber] = true
	}

	all, err := store.ListOrders(ctx, 100, 0)
	require.NoError(t, err)
	assert.Len(t, all, payments)
}

// lateDuplicateStore hides existing orders from the first lookup, so the
// caller sails past the redelivery fast path and collides with the
// payment-intent uniqueness constraint inside the transaction. That is the
// shape of a lost concurrent-delivery race.
type lateDuplicateStore struct {
	*memstore.Store
	looked bool
}

func (s *lateDuplicateStore) GetOrderByPaymentIntent(ctx context.Context, id string) (*domain.Order, error) {
	if !s.looked {
		s.looked = true
		return nil, domain.NotFound("order.get", "order", id)
	}
	return s.Store.GetOrderByPaymentIntent(ctx, id)
}

func TestReconcilerLosesCreateRaceGracefully(t *testing.T) {
	store := memstore.New()
	intent, _ := paidIntent(t, store)

	store.SeedOrder(domain.Order{
		OrderNumber:     "EB-2026-000001",
		PaymentIntentID: intent.ID,
		GuestEmail:      "guest@example.com",
		Status:          domain.OrderStatusPending,
		TotalCents:      4536,
		Currency:        "usd",
	})

	late := &lateDuplicateStore{Store: store}
	pub := &fakePublisher{}
	r := NewReconciler(late, pub, "EB", testLogger())

	order, err := r.CreateOrderFromPaymentIntent(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, "EB-2026-000001", order.OrderNumber)
	assert.Equal(t, intent.ID, order.PaymentIntentID)

	// The earlier delivery's order stands alone and no duplicate
	// confirmation goes out.
	all, err := store.ListOrders(context.Background(), 100, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Empty(t, pub.notes)
}

func TestReconcilerRollsBackAtomically(t *testing.T) {
	store := memstore.New()
	intent, cart := paidIntent(t, store)
	r, pub := newReconciler(store)
	ctx := context.Background()

	store.ClearCartErr = errors.New("deadlock detected")

	_, err := r.CreateOrderFromPaymentIntent(ctx, intent)
	require.Error(t, err)

	// No order, no notification, cart untouched.
	_, err = store.GetOrderByPaymentIntent(ctx, intent.ID)
	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
	assert.Empty(t, pub.notes)

	got, err := store.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	// The provider redelivers; the retry succeeds cleanly.
	store.ClearCartErr = nil
	order, err := r.CreateOrderFromPaymentIntent(ctx, intent)
	require.NoError(t, err)
	assert.Equal(t, "EB-2026-000001", order.OrderNumber)
}

func TestReconcilerAnomalyDoesNotBlock(t *testing.T) {
	store := memstore.New()
	intent, _ := paidIntent(t, store)
	r, _ := newReconciler(store)

	// Charged amount disagrees with the manifest total.
	intent.AmountCents = 9999

	order, err := r.CreateOrderFromPaymentIntent(context.Background(), intent)
	require.NoError(t, err)

	// The manifest, not the charge, is canonical for the stored totals.
	assert.Equal(t, int64(4536), order.TotalCents)
}

func TestReconcilerRejectsUnusableMetadata(t *testing.T) {
	store := memstore.New()
	r, _ := newReconciler(store)

	intent := &billing.PaymentIntent{
		ID:       "pi_bad",
		Metadata: map[string]string{"cart_id": "not-a-uuid"},
	}
	_, err := r.CreateOrderFromPaymentIntent(context.Background(), intent)
	assert.True(t, domain.IsCode(err, domain.EINVALID))
}

func TestReconcilerPublishFailureIsSwallowed(t *testing.T) {
	store := memstore.New()
	intent, _ := paidIntent(t, store)
	r, pub := newReconciler(store)
	pub.err = errors.New("nats: connection closed")

	order, err := r.CreateOrderFromPaymentIntent(context.Background(), intent)
	require.NoError(t, err)
	assert.NotEmpty(t, order.OrderNumber)
}

func TestReconcilerAuthenticatedManifest(t *testing.T) {
	store := memstore.New()
	a, b := seedCatalog(store)
	userID := uuid.New()
	cart := seedCart(t, store, &userID, a, b)
	r, pub := newReconciler(store)

	meta, err := encodeManifest(manifest{
		CartID:    cart.ID,
		UserID:    &userID,
		UserEmail: "casey@example.com",
		Items: []manifestItem{
			{ProductID: a.ID, Name: a.Name, Quantity: 1, UnitPriceCents: 1500},
		},
		SubtotalCents: 1500,
		ShippingCents: 500,
		TotalCents:    2000,
	})
	require.NoError(t, err)

	order, err := r.CreateOrderFromPaymentIntent(context.Background(), &billing.PaymentIntent{
		ID:          "pi_test_002",
		AmountCents: 2000,
		Currency:    "usd",
		Metadata:    meta,
	})
	require.NoError(t, err)

	require.NotNil(t, order.UserID)
	assert.Equal(t, userID, *order.UserID)
	assert.Empty(t, order.GuestEmail)
	assert.Equal(t, "casey@example.com", order.CustomerEmail())
	require.Len(t, pub.notes, 1)
	assert.Equal(t, "casey@example.com", pub.notes[0].Recipient)
}

func TestHandleEventIgnoresNonSuccess(t *testing.T) {
	store := memstore.New()
	r, pub := newReconciler(store)
	ctx := context.Background()

	for _, typ := range []string{billing.EventPaymentFailed, billing.EventPaymentCanceled, "charge.refunded"} {
		err := r.HandleEvent(ctx, &billing.Event{Type: typ, PaymentIntent: &billing.PaymentIntent{ID: "pi_x"}})
		require.NoError(t, err)
	}

	orders, err := store.ListOrders(ctx, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, pub.notes)
}
