package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the pre-payment, client-driven collection of items. It is owned by
// exactly one authenticated user, or held anonymously by a guest via the cart
// id. Its items are destroyed the instant they are materialized into an Order.
type Cart struct {
	ID     uuid.UUID
	UserID *uuid.UUID // nil for guest carts

	Items []CartItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is a product/quantity pair. Quantity is always >= 1; removal is an
// explicit operation, never a zero-quantity update.
type CartItem struct {
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int32

	// Denormalized from the catalog for display only. Pricing used at
	// checkout is always re-read from the catalog gateway.
	ProductName    string
	UnitPriceCents int64
}

// SubtotalCents sums the display prices on the cart. Advisory only; the
// checkout service recomputes from the catalog.
func (c *Cart) SubtotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPriceCents * int64(item.Quantity)
	}
	return total
}
