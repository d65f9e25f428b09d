package domain

import (
	"context"

	"github.com/google/uuid"
)

// Store is the durable storage contract for the checkout core. The postgres
// package provides the production implementation; tests use in-memory fakes.
//
// Implementations return domain errors: ENOTFOUND for missing rows,
// ErrPaymentAlreadyProcessed / ErrOrderNumberTaken / ErrDuplicateActiveReturn
// for the corresponding unique-constraint violations.
type Store interface {
	// WithTx runs fn against a transactional view of the store. If fn
	// returns an error the transaction rolls back; otherwise it commits.
	// Transactions are kept short: no external network calls inside fn.
	WithTx(ctx context.Context, fn func(Store) error) error

	// --- Carts ---

	// GetCart loads a cart with its items.
	GetCart(ctx context.Context, cartID uuid.UUID) (*Cart, error)

	// GetCartByUser loads the user's open cart, creating one if absent.
	GetCartByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)

	// CreateCart creates a cart. userID is nil for guest carts.
	CreateCart(ctx context.Context, userID *uuid.UUID) (*Cart, error)

	// AddCartItem upserts an item, adding quantity to any existing line.
	AddCartItem(ctx context.Context, cartID, productID uuid.UUID, quantity int32) error

	// SetCartItemQuantity replaces the quantity of an existing line.
	SetCartItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int32) error

	// RemoveCartItem deletes a line from the cart.
	RemoveCartItem(ctx context.Context, cartID, productID uuid.UUID) error

	// ClearCart deletes every item from the cart.
	ClearCart(ctx context.Context, cartID uuid.UUID) error

	// --- Orders ---

	// AllocateOrderNumber atomically increments and returns the per-year
	// order sequence. Never a read-modify-write in application memory.
	AllocateOrderNumber(ctx context.Context, year int) (int64, error)

	// CreateOrder inserts the order and its items.
	CreateOrder(ctx context.Context, order *Order) error

	// GetOrderByPaymentIntent looks an order up by its payment reference
	// (the reconciliation idempotency key).
	GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*Order, error)

	// GetOrderByNumber loads an order with items by order number.
	GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error)

	// ListOrdersByUser lists a customer's orders, newest first.
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)

	// ListOrders lists orders for the admin surface, newest first.
	ListOrders(ctx context.Context, limit, offset int32) ([]Order, error)

	// UpdateOrderStatus overwrites the terse status field.
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) error

	// UpdateOrderTracking sets carrier/number/url on the order.
	UpdateOrderTracking(ctx context.Context, orderID uuid.UUID, carrier, number, url string) error

	// AppendTrackingUpdate appends to the order's tracking ledger.
	// Ledger rows are never edited or deleted.
	AppendTrackingUpdate(ctx context.Context, update *TrackingUpdate) error

	// ListTrackingUpdates returns the ledger in append order.
	ListTrackingUpdates(ctx context.Context, orderID uuid.UUID) ([]TrackingUpdate, error)

	// --- Returns ---

	// CreateReturn inserts a return request.
	CreateReturn(ctx context.Context, ret *Return) error

	// GetReturn loads a return by id.
	GetReturn(ctx context.Context, id uuid.UUID) (*Return, error)

	// ListReturnsByUser lists a customer's returns, newest first.
	ListReturnsByUser(ctx context.Context, userID uuid.UUID) ([]Return, error)

	// ListReturns lists returns for the admin surface, newest first.
	ListReturns(ctx context.Context, limit, offset int32) ([]Return, error)

	// HasActiveReturn reports whether a pending or approved return exists
	// for the order number.
	HasActiveReturn(ctx context.Context, orderNumber string) (bool, error)

	// UpdateReturn persists status, admin notes, and refund amount.
	UpdateReturn(ctx context.Context, ret *Return) error

	// --- Sessions ---

	// GetUserBySessionToken resolves a session token to its user.
	GetUserBySessionToken(ctx context.Context, token string) (*User, error)
}

// CatalogGateway is the read-only product lookup consumed by the checkout
// path. Pricing returned here is authoritative.
type CatalogGateway interface {
	// FindByID returns the product or ENOTFOUND.
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindMany returns products in request order, or ENOTFOUND naming the
	// first missing id.
	FindMany(ctx context.Context, ids []uuid.UUID) ([]Product, error)
}
