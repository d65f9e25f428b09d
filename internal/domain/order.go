package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the terse fulfillment status of an order.
// It is overwritten on each transition; the tracking ledger keeps history.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

// ValidOrderStatus reports whether s is one of the enumerated statuses.
// Guards admin-submitted transitions against typos and arbitrary strings.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled,
		OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// Order is the immutable business record created at payment confirmation.
// Monetary fields are computed server-side at creation time from catalog
// prices and are never recomputed from current catalog state afterward.
type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	PaymentIntentID string

	// Exactly one identity channel is set: UserID for authenticated
	// checkouts, GuestEmail for guest checkouts.
	UserID     *uuid.UUID
	GuestEmail string

	// Email is the authenticated customer's email, denormalized onto the
	// order at creation time so notifications survive account changes.
	// Empty for guest checkouts (GuestEmail carries the recipient).
	Email string

	Status OrderStatus

	SubtotalCents int64
	DiscountCents int64
	TaxCents      int64
	ShippingCents int64
	TotalCents    int64
	Currency      string

	TrackingCarrier string
	TrackingNumber  string
	TrackingURL     string
	Notes           string

	Items []OrderItem

	CreatedAt time.Time
}

// CustomerEmail returns the notification recipient for the order,
// regardless of identity channel.
func (o *Order) CustomerEmail() string {
	if o.GuestEmail != "" {
		return o.GuestEmail
	}
	return o.Email
}

// OrderItem is a purchased line owned exclusively by its Order.
type OrderItem struct {
	ID      uuid.UUID
	OrderID uuid.UUID

	ProductID uuid.UUID
	Name      string
	Quantity  int32

	// UnitPriceCents is the snapshot of the unit price at purchase time.
	// It never tracks subsequent catalog price changes.
	UnitPriceCents int64
}

// LineTotalCents is the snapshot line total.
func (i OrderItem) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// TrackingUpdate is an append-only ledger entry describing a step in an
// order's fulfillment history. Entries are never edited or deleted.
type TrackingUpdate struct {
	ID       uuid.UUID
	OrderID  uuid.UUID
	Status   OrderStatus
	Message  string
	Location string

	CreatedAt time.Time
}

// orderNumberPattern matches PREFIX-YYYY-NNNNNN. The sequence is zero-padded
// to six digits but grows wider rather than truncating.
var orderNumberPattern = regexp.MustCompile(`^([A-Z]+)-(\d{4})-(\d{6,})$`)

// FormatOrderNumber renders an allocated sequence value as a human-facing
// order number, e.g. FormatOrderNumber("EB", 2026, 42) == "EB-2026-000042".
func FormatOrderNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%06d", strings.ToUpper(prefix), year, seq)
}

// ParseOrderNumber splits an order number into its parts.
// Returns EINVALID when the value does not match the expected format.
func ParseOrderNumber(s string) (prefix string, year int, seq int64, err error) {
	m := orderNumberPattern.FindStringSubmatch(s)
	if m == nil {
		return "", 0, 0, Errorf(EINVALID, "order.number", "malformed order number: %s", s)
	}
	year, _ = strconv.Atoi(m[2])
	seq, _ = strconv.ParseInt(m[3], 10, 64)
	return m[1], year, seq, nil
}
