// Package service implements the checkout, reconciliation, fulfillment, and
// return workflows on top of the store, catalog, and billing interfaces.
package service

import (
	"context"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CartService manages pre-payment carts for guests and authenticated users.
type CartService struct {
	store   domain.Store
	catalog domain.CatalogGateway
	logger  zerolog.Logger
}

// NewCartService creates a cart service.
func NewCartService(store domain.Store, catalog domain.CatalogGateway, logger zerolog.Logger) *CartService {
	return &CartService{
		store:   store,
		catalog: catalog,
		logger:  logger.With().Str("service", "cart").Logger(),
	}
}

// CartForRequest resolves the caller's cart. Authenticated users get their
// single open cart, created on first use. Guests get the cart named by
// cartID, or a fresh anonymous cart when cartID is nil.
func (s *CartService) CartForRequest(ctx context.Context, cartID *uuid.UUID) (*domain.Cart, error) {
	if user := domain.UserFromContext(ctx); user != nil {
		return s.store.GetCartByUser(ctx, user.ID)
	}
	if cartID == nil {
		return s.store.CreateCart(ctx, nil)
	}
	return s.authorizedCart(ctx, *cartID)
}

// AddItem adds quantity of a product to the cart, merging with any existing
// line. The product must exist, be active, and be in stock.
func (s *CartService) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int32) (*domain.Cart, error) {
	const op = "cart.add_item"

	if quantity < 1 {
		return nil, domain.Invalid(op, "quantity must be at least 1")
	}

	cart, err := s.authorizedCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := checkPurchasable(op, product); err != nil {
		return nil, err
	}

	if err := s.store.AddCartItem(ctx, cart.ID, productID, quantity); err != nil {
		return nil, err
	}
	return s.store.GetCart(ctx, cart.ID)
}

// UpdateItemQuantity replaces the quantity of an existing line. Zero and
// negative quantities are rejected; removal is its own operation.
func (s *CartService) UpdateItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int32) (*domain.Cart, error) {
	const op = "cart.update_item"

	if quantity < 1 {
		return nil, domain.Invalid(op, "quantity must be at least 1; remove the item instead")
	}

	cart, err := s.authorizedCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetCartItemQuantity(ctx, cart.ID, productID, quantity); err != nil {
		return nil, err
	}
	return s.store.GetCart(ctx, cart.ID)
}

// RemoveItem deletes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.authorizedCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if err := s.store.RemoveCartItem(ctx, cart.ID, productID); err != nil {
		return nil, err
	}
	return s.store.GetCart(ctx, cart.ID)
}

// authorizedCart loads the cart and enforces ownership: a cart bound to a
// user is only visible to that user. Anonymous carts are capability-addressed
// by their id.
func (s *CartService) authorizedCart(ctx context.Context, cartID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.store.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.UserID != nil {
		user := domain.UserFromContext(ctx)
		if user == nil || user.ID != *cart.UserID {
			return nil, domain.Forbidden("cart.get", "cart belongs to another customer")
		}
	}
	return cart, nil
}

func checkPurchasable(op string, p *domain.Product) error {
	if !p.Active {
		return domain.Errorf(domain.EINVALID, op, "product %q is no longer available", p.Name)
	}
	if !p.InStock {
		return domain.Errorf(domain.EINVALID, op, "product %q is out of stock", p.Name)
	}
	return nil
}
