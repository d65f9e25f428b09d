package postgres

import (
	"context"
	"errors"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const returnColumns = `
	id, order_number, user_id, reason, item_ids,
	refund_amount_cents, status, admin_notes, created_at, updated_at`

// CreateReturn inserts a return request. The partial unique index on active
// returns closes the race between two concurrent requests for one order.
func (s *Store) CreateReturn(ctx context.Context, ret *domain.Return) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO returns (order_number, user_id, reason, item_ids, refund_amount_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		ret.OrderNumber, ret.UserID, ret.Reason, ret.ItemIDs, ret.RefundAmountCents, ret.Status,
	).Scan(&ret.ID, &ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		if sentinel := constraintError(err); sentinel != nil {
			return sentinel
		}
		return domain.Internal(err, "return.create", "failed to create return")
	}
	return nil
}

// GetReturn loads a return by id.
func (s *Store) GetReturn(ctx context.Context, id uuid.UUID) (*domain.Return, error) {
	row := s.db.QueryRow(ctx, `SELECT `+returnColumns+` FROM returns WHERE id = $1`, id)

	ret, err := scanReturn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("return.get", "return", id.String())
		}
		return nil, domain.Internal(err, "return.get", "failed to load return")
	}
	return ret, nil
}

// ListReturnsByUser lists a customer's returns, newest first.
func (s *Store) ListReturnsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Return, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+returnColumns+` FROM returns WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, domain.Internal(err, "return.list_by_user", "failed to list returns")
	}
	return collectReturns(rows)
}

// ListReturns lists returns for the admin surface, newest first.
func (s *Store) ListReturns(ctx context.Context, limit, offset int32) ([]domain.Return, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+returnColumns+` FROM returns ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, domain.Internal(err, "return.list", "failed to list returns")
	}
	return collectReturns(rows)
}

// HasActiveReturn reports whether a pending or approved return exists for
// the order number.
func (s *Store) HasActiveReturn(ctx context.Context, orderNumber string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM returns
			WHERE order_number = $1 AND status IN ('pending', 'approved')
		)`,
		orderNumber,
	).Scan(&exists)
	if err != nil {
		return false, domain.Internal(err, "return.has_active", "failed to check active returns")
	}
	return exists, nil
}

// UpdateReturn persists status, admin notes, and refund amount.
func (s *Store) UpdateReturn(ctx context.Context, ret *domain.Return) error {
	err := s.db.QueryRow(ctx, `
		UPDATE returns
		SET status = $2, admin_notes = $3, refund_amount_cents = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		ret.ID, ret.Status, ret.AdminNotes, ret.RefundAmountCents,
	).Scan(&ret.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFound("return.update", "return", ret.ID.String())
		}
		return domain.Internal(err, "return.update", "failed to update return")
	}
	return nil
}

func collectReturns(rows pgx.Rows) ([]domain.Return, error) {
	defer rows.Close()

	var returns []domain.Return
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, domain.Internal(err, "return.list", "failed to scan return")
		}
		returns = append(returns, *ret)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "return.list", "failed to read returns")
	}
	return returns, nil
}

func scanReturn(row pgx.Row) (*domain.Return, error) {
	var ret domain.Return
	err := row.Scan(
		&ret.ID, &ret.OrderNumber, &ret.UserID, &ret.Reason, &ret.ItemIDs,
		&ret.RefundAmountCents, &ret.Status, &ret.AdminNotes, &ret.CreatedAt, &ret.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}
