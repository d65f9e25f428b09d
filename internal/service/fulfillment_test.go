package service

import (
	"context"
	"testing"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/email"
	"github.com/dukerupert/emberbean/internal/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPendingOrder(store *memstore.Store) domain.Order {
	order := domain.Order{
		OrderNumber:     "EB-2026-000001",
		PaymentIntentID: "pi_fulfil_001",
		GuestEmail:      "guest@example.com",
		Status:          domain.OrderStatusPending,
		TotalCents:      4536,
		Currency:        "usd",
	}
	store.SeedOrder(order)
	return order
}

func TestUpdateStatusAppendsLedger(t *testing.T) {
	store := memstore.New()
	seedPendingOrder(store)
	pub := &fakePublisher{}
	svc := NewFulfillmentService(store, pub, testLogger())
	ctx := context.Background()

	order, err := svc.UpdateStatus(ctx, UpdateStatusParams{
		OrderNumber: "EB-2026-000001",
		Status:      domain.OrderStatusCompleted,
		Message:     "Roasted and packed",
		Location:    "Portland, OR",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, order.Status)

	updates, err := store.ListTrackingUpdates(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, domain.OrderStatusCompleted, updates[0].Status)
	assert.Equal(t, "Roasted and packed", updates[0].Message)
	assert.Equal(t, "Portland, OR", updates[0].Location)

	require.Len(t, pub.notes, 1)
	assert.Equal(t, email.KindStatusUpdate, pub.notes[0].Kind)
	assert.Equal(t, "guest@example.com", pub.notes[0].Recipient)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	store := memstore.New()
	seedPendingOrder(store)
	svc := NewFulfillmentService(store, nil, testLogger())

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusParams{
		OrderNumber: "EB-2026-000001",
		Status:      "lost_in_transit",
	})
	assert.True(t, domain.IsCode(err, domain.EINVALID))
}

func TestLedgerPreservesAppendOrder(t *testing.T) {
	store := memstore.New()
	seedPendingOrder(store)
	svc := NewFulfillmentService(store, nil, testLogger())
	ctx := context.Background()

	transitions := []domain.OrderStatus{
		domain.OrderStatusCompleted,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	}
	for _, status := range transitions {
		_, err := svc.UpdateStatus(ctx, UpdateStatusParams{
			OrderNumber: "EB-2026-000001",
			Status:      status,
		})
		require.NoError(t, err)
	}

	order, err := store.GetOrderByNumber(ctx, "EB-2026-000001")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, order.Status)

	updates, err := store.ListTrackingUpdates(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, updates, 3)
	for i, status := range transitions {
		assert.Equal(t, status, updates[i].Status)
	}
}

func TestShippedWithTrackingSendsShipmentEmail(t *testing.T) {
	store := memstore.New()
	seedPendingOrder(store)
	pub := &fakePublisher{}
	svc := NewFulfillmentService(store, pub, testLogger())
	ctx := context.Background()

	_, err := svc.SetTracking(ctx, SetTrackingParams{
		OrderNumber: "EB-2026-000001",
		Carrier:     "USPS",
		Number:      "9400100000000000000000",
		URL:         "https://tools.usps.com/track?n=9400100000000000000000",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, UpdateStatusParams{
		OrderNumber: "EB-2026-000001",
		Status:      domain.OrderStatusShipped,
	})
	require.NoError(t, err)

	require.Len(t, pub.notes, 1)
	assert.Equal(t, email.KindShipment, pub.notes[0].Kind)
	assert.Equal(t, "USPS", pub.notes[0].Data.TrackingCarrier)
	assert.Equal(t, "9400100000000000000000", pub.notes[0].Data.TrackingNumber)
}

func TestShippedWithoutTrackingSendsStatusEmail(t *testing.T) {
	store := memstore.New()
	seedPendingOrder(store)
	pub := &fakePublisher{}
	svc := NewFulfillmentService(store, pub, testLogger())

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusParams{
		OrderNumber: "EB-2026-000001",
		Status:      domain.OrderStatusShipped,
	})
	require.NoError(t, err)

	require.Len(t, pub.notes, 1)
	assert.Equal(t, email.KindStatusUpdate, pub.notes[0].Kind)
}

func TestSetTrackingRequiresCarrierAndNumber(t *testing.T) {
	store := memstore.New()
	seedPendingOrder(store)
	svc := NewFulfillmentService(store, nil, testLogger())

	_, err := svc.SetTracking(context.Background(), SetTrackingParams{
		OrderNumber: "EB-2026-000001",
		Carrier:     "USPS",
	})
	assert.True(t, domain.IsCode(err, domain.EINVALID))
}

func TestSetTrackingRecordsLedgerEntry(t *testing.T) {
	store := memstore.New()
	seedPendingOrder(store)
	svc := NewFulfillmentService(store, nil, testLogger())
	ctx := context.Background()

	order, err := svc.SetTracking(ctx, SetTrackingParams{
		OrderNumber: "EB-2026-000001",
		Carrier:     "UPS",
		Number:      "1Z999AA10123456784",
	})
	require.NoError(t, err)
	assert.Equal(t, "UPS", order.TrackingCarrier)

	updates, err := store.ListTrackingUpdates(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	// Terse status is untouched.
	assert.Equal(t, domain.OrderStatusPending, updates[0].Status)
}

func TestAppendTrackingLeavesStatusAlone(t *testing.T) {
	store := memstore.New()
	seedPendingOrder(store)
	svc := NewFulfillmentService(store, nil, testLogger())
	ctx := context.Background()

	update, err := svc.AppendTracking(ctx, "EB-2026-000001", domain.OrderStatusShipped, "Departed facility", "Memphis, TN")
	require.NoError(t, err)
	assert.Equal(t, "Departed facility", update.Message)

	order, err := store.GetOrderByNumber(ctx, "EB-2026-000001")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)

	_, err = svc.AppendTracking(ctx, "EB-2026-000001", "teleported", "", "")
	assert.True(t, domain.IsCode(err, domain.EINVALID))
}
