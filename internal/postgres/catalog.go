package postgres

import (
	"context"
	"errors"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Catalog is the read-only catalog gateway backed by the products table.
// Pricing returned here is authoritative for checkout.
type Catalog struct {
	db dbtx
}

// Compile-time check that Catalog implements domain.CatalogGateway.
var _ domain.CatalogGateway = (*Catalog)(nil)

// NewCatalog creates the catalog gateway over the store's pool.
func NewCatalog(store *Store) *Catalog {
	return &Catalog{db: store.db}
}

// FindByID returns the product or ENOTFOUND.
func (c *Catalog) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	err := c.db.QueryRow(ctx, `
		SELECT id, name, slug, price_cents, in_stock, active
		FROM products
		WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Slug, &p.PriceCents, &p.InStock, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("catalog.find", "product", id.String())
		}
		return nil, domain.Internal(err, "catalog.find", "failed to load product")
	}
	return &p, nil
}

// FindMany returns products in request order, or ENOTFOUND naming the first
// missing id.
func (c *Catalog) FindMany(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	rows, err := c.db.Query(ctx, `
		SELECT id, name, slug, price_cents, in_stock, active
		FROM products
		WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, domain.Internal(err, "catalog.find_many", "failed to load products")
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.PriceCents, &p.InStock, &p.Active); err != nil {
			return nil, domain.Internal(err, "catalog.find_many", "failed to scan product")
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "catalog.find_many", "failed to read products")
	}

	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, domain.NotFound("catalog.find_many", "product", id.String())
		}
		products = append(products, p)
	}

	return products, nil
}
