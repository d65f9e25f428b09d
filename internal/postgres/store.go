// Package postgres implements domain.Store and domain.CatalogGateway on
// pgx. Transactions stay short: a single round of reads and writes, no
// external network calls inside them.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres error code for unique-constraint failures.
const uniqueViolation = "23505"

// dbtx is the subset of pgx shared by pools and transactions.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the pgx-backed implementation of domain.Store.
type Store struct {
	db   dbtx
	pool *pgxpool.Pool // nil inside a transaction
}

// Compile-time check that Store implements domain.Store.
var _ domain.Store = (*Store)(nil)

// NewStore creates a store over a connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, pool: pool}
}

// WithTx runs fn against a transactional store. Nested calls reuse the
// enclosing transaction.
func (s *Store) WithTx(ctx context.Context, fn func(domain.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(&Store{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// constraintError maps known unique-constraint violations to their domain
// sentinels. Returns nil when err is not a recognized violation.
func constraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}

	switch pgErr.ConstraintName {
	case "orders_payment_intent_id_key":
		return domain.ErrPaymentAlreadyProcessed
	case "orders_order_number_key":
		return domain.ErrOrderNumberTaken
	case "returns_active_order_key":
		return domain.ErrDuplicateActiveReturn
	}
	return nil
}
