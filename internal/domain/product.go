package domain

import (
	"github.com/google/uuid"
)

// Product is the catalog read model consumed by the checkout path.
// The catalog is the authoritative source of truth for pricing; client
// submitted prices are never trusted.
type Product struct {
	ID         uuid.UUID
	Name       string
	Slug       string
	PriceCents int64
	InStock    bool
	Active     bool
}
