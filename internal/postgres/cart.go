package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetCart loads a cart with its items.
func (s *Store) GetCart(ctx context.Context, cartID uuid.UUID) (*domain.Cart, error) {
	var cart domain.Cart
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, created_at, updated_at
		FROM carts
		WHERE id = $1`,
		cartID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("cart.get", "cart", cartID.String())
		}
		return nil, domain.Internal(err, "cart.get", "failed to load cart")
	}

	items, err := s.listCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return &cart, nil
}

// GetCartByUser loads the user's open cart, creating one if absent.
func (s *Store) GetCartByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var cart domain.Cart
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1`,
		userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.CreateCart(ctx, &userID)
	}
	if err != nil {
		return nil, domain.Internal(err, "cart.get_by_user", "failed to load cart")
	}

	items, err := s.listCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return &cart, nil
}

// CreateCart creates a cart. userID is nil for guest carts.
func (s *Store) CreateCart(ctx context.Context, userID *uuid.UUID) (*domain.Cart, error) {
	var cart domain.Cart
	err := s.db.QueryRow(ctx, `
		INSERT INTO carts (user_id)
		VALUES ($1)
		RETURNING id, user_id, created_at, updated_at`,
		userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, domain.Internal(err, "cart.create", "failed to create cart")
	}
	return &cart, nil
}

// AddCartItem upserts an item, adding quantity to any existing line.
func (s *Store) AddCartItem(ctx context.Context, cartID, productID uuid.UUID, quantity int32) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		cartID, productID, quantity,
	)
	if err != nil {
		return domain.Internal(err, "cart.add_item", "failed to add cart item")
	}
	return s.touchCart(ctx, cartID)
}

// SetCartItemQuantity replaces the quantity of an existing line.
func (s *Store) SetCartItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int32) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE cart_items
		SET quantity = $3
		WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID, quantity,
	)
	if err != nil {
		return domain.Internal(err, "cart.set_quantity", "failed to update cart item")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("cart.set_quantity", "cart item", productID.String())
	}
	return s.touchCart(ctx, cartID)
}

// RemoveCartItem deletes a line from the cart.
func (s *Store) RemoveCartItem(ctx context.Context, cartID, productID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM cart_items
		WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID,
	)
	if err != nil {
		return domain.Internal(err, "cart.remove_item", "failed to remove cart item")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("cart.remove_item", "cart item", productID.String())
	}
	return s.touchCart(ctx, cartID)
}

// ClearCart deletes every item from the cart.
func (s *Store) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return domain.Internal(err, "cart.clear", "failed to clear cart")
	}
	return nil
}

func (s *Store) listCartItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ci.cart_id, ci.product_id, ci.quantity, p.name, p.price_cents
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at`,
		cartID,
	)
	if err != nil {
		return nil, domain.Internal(err, "cart.items", "failed to load cart items")
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.CartID, &item.ProductID, &item.Quantity, &item.ProductName, &item.UnitPriceCents); err != nil {
			return nil, domain.Internal(err, "cart.items", "failed to scan cart item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "cart.items", "failed to read cart items")
	}

	return items, nil
}

func (s *Store) touchCart(ctx context.Context, cartID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return nil
}
