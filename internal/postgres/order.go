package postgres

import (
	"context"
	"errors"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AllocateOrderNumber atomically increments and returns the per-year order
// sequence. The upsert is a single statement, so two concurrent checkouts can
// never observe the same value.
func (s *Store) AllocateOrderNumber(ctx context.Context, year int) (int64, error) {
	var value int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO order_counters (year, last_value)
		VALUES ($1, 1)
		ON CONFLICT (year)
		DO UPDATE SET last_value = order_counters.last_value + 1
		RETURNING last_value`,
		year,
	).Scan(&value)
	if err != nil {
		return 0, domain.Internal(err, "order.allocate_number", "failed to allocate order number")
	}
	return value, nil
}

// CreateOrder inserts the order and its items.
func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	var userEmail, guestEmail *string
	if order.Email != "" {
		userEmail = &order.Email
	}
	if order.GuestEmail != "" {
		guestEmail = &order.GuestEmail
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO orders (
			order_number, payment_intent_id, user_id, user_email, guest_email,
			status, subtotal_cents, discount_cents, tax_cents, shipping_cents,
			total_cents, currency, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`,
		order.OrderNumber, order.PaymentIntentID, order.UserID, userEmail, guestEmail,
		order.Status, order.SubtotalCents, order.DiscountCents, order.TaxCents,
		order.ShippingCents, order.TotalCents, order.Currency, order.Notes,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		if sentinel := constraintError(err); sentinel != nil {
			return sentinel
		}
		return domain.Internal(err, "order.create", "failed to create order")
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := s.db.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, name, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			item.OrderID, item.ProductID, item.Name, item.Quantity, item.UnitPriceCents,
		).Scan(&item.ID)
		if err != nil {
			return domain.Internal(err, "order.create", "failed to create order item")
		}
	}

	return nil
}

// GetOrderByPaymentIntent looks an order up by its payment reference.
func (s *Store) GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	return s.getOrder(ctx, `payment_intent_id = $1`, paymentIntentID)
}

// GetOrderByNumber loads an order with items by order number.
func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.getOrder(ctx, `order_number = $1`, orderNumber)
}

const orderColumns = `
	id, order_number, payment_intent_id, user_id,
	COALESCE(user_email, ''), COALESCE(guest_email, ''),
	status, subtotal_cents, discount_cents, tax_cents, shipping_cents,
	total_cents, currency, tracking_carrier, tracking_number, tracking_url,
	notes, created_at`

func (s *Store) getOrder(ctx context.Context, where string, arg any) (*domain.Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("order.get", "order", "")
		}
		return nil, domain.Internal(err, "order.get", "failed to load order")
	}

	items, err := s.listOrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// ListOrdersByUser lists a customer's orders, newest first.
func (s *Store) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, domain.Internal(err, "order.list_by_user", "failed to list orders")
	}
	return s.collectOrders(ctx, rows)
}

// ListOrders lists orders for the admin surface, newest first.
func (s *Store) ListOrders(ctx context.Context, limit, offset int32) ([]domain.Order, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, domain.Internal(err, "order.list", "failed to list orders")
	}
	return s.collectOrders(ctx, rows)
}

// UpdateOrderStatus overwrites the terse status field.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`,
		orderID, status,
	)
	if err != nil {
		return domain.Internal(err, "order.update_status", "failed to update order status")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("order.update_status", "order", orderID.String())
	}
	return nil
}

// UpdateOrderTracking sets carrier/number/url on the order.
func (s *Store) UpdateOrderTracking(ctx context.Context, orderID uuid.UUID, carrier, number, url string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET tracking_carrier = $2, tracking_number = $3, tracking_url = $4
		WHERE id = $1`,
		orderID, carrier, number, url,
	)
	if err != nil {
		return domain.Internal(err, "order.update_tracking", "failed to update tracking")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("order.update_tracking", "order", orderID.String())
	}
	return nil
}

// AppendTrackingUpdate appends to the order's tracking ledger.
func (s *Store) AppendTrackingUpdate(ctx context.Context, update *domain.TrackingUpdate) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO tracking_updates (order_id, status, message, location)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		update.OrderID, update.Status, update.Message, update.Location,
	).Scan(&update.ID, &update.CreatedAt)
	if err != nil {
		return domain.Internal(err, "tracking.append", "failed to append tracking update")
	}
	return nil
}

// ListTrackingUpdates returns the ledger in append order.
func (s *Store) ListTrackingUpdates(ctx context.Context, orderID uuid.UUID) ([]domain.TrackingUpdate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, status, message, location, created_at
		FROM tracking_updates
		WHERE order_id = $1
		ORDER BY created_at, id`,
		orderID,
	)
	if err != nil {
		return nil, domain.Internal(err, "tracking.list", "failed to list tracking updates")
	}
	defer rows.Close()

	var updates []domain.TrackingUpdate
	for rows.Next() {
		var u domain.TrackingUpdate
		if err := rows.Scan(&u.ID, &u.OrderID, &u.Status, &u.Message, &u.Location, &u.CreatedAt); err != nil {
			return nil, domain.Internal(err, "tracking.list", "failed to scan tracking update")
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "tracking.list", "failed to read tracking updates")
	}

	return updates, nil
}

func (s *Store) collectOrders(ctx context.Context, rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, domain.Internal(err, "order.list", "failed to scan order")
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "order.list", "failed to read orders")
	}

	for i := range orders {
		items, err := s.listOrderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (s *Store) listOrderItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, product_id, name, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, domain.Internal(err, "order.items", "failed to load order items")
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, domain.Internal(err, "order.items", "failed to scan order item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "order.items", "failed to read order items")
	}

	return items, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.PaymentIntentID, &order.UserID,
		&order.Email, &order.GuestEmail,
		&order.Status, &order.SubtotalCents, &order.DiscountCents, &order.TaxCents,
		&order.ShippingCents, &order.TotalCents, &order.Currency,
		&order.TrackingCarrier, &order.TrackingNumber, &order.TrackingURL,
		&order.Notes, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
