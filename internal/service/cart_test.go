package service

import (
	"context"
	"testing"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartAddMergeUpdateRemove(t *testing.T) {
	store := memstore.New()
	a, _ := seedCatalog(store)
	svc := NewCartService(store, store, testLogger())
	ctx := context.Background()

	cart, err := svc.CartForRequest(ctx, nil)
	require.NoError(t, err)

	cart, err = svc.AddItem(ctx, cart.ID, a.ID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	// Adding again merges quantities.
	cart, err = svc.AddItem(ctx, cart.ID, a.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int32(3), cart.Items[0].Quantity)
	assert.Equal(t, int64(4500), cart.SubtotalCents())

	cart, err = svc.UpdateItemQuantity(ctx, cart.ID, a.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), cart.Items[0].Quantity)

	cart, err = svc.RemoveItem(ctx, cart.ID, a.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartRejectsBadQuantities(t *testing.T) {
	store := memstore.New()
	a, _ := seedCatalog(store)
	svc := NewCartService(store, store, testLogger())
	ctx := context.Background()

	cart, err := svc.CartForRequest(ctx, nil)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, cart.ID, a.ID, 0)
	assert.True(t, domain.IsCode(err, domain.EINVALID))

	_, err = svc.AddItem(ctx, cart.ID, a.ID, 1)
	require.NoError(t, err)

	// Zero quantity is not a removal.
	_, err = svc.UpdateItemQuantity(ctx, cart.ID, a.ID, 0)
	assert.True(t, domain.IsCode(err, domain.EINVALID))
}

func TestCartRejectsUnsellableProducts(t *testing.T) {
	store := memstore.New()
	a, b := seedCatalog(store)
	a.Active = false
	b.InStock = false
	store.SeedProduct(a)
	store.SeedProduct(b)
	svc := NewCartService(store, store, testLogger())
	ctx := context.Background()

	cart, err := svc.CartForRequest(ctx, nil)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, cart.ID, a.ID, 1)
	assert.True(t, domain.IsCode(err, domain.EINVALID))

	_, err = svc.AddItem(ctx, cart.ID, b.ID, 1)
	assert.True(t, domain.IsCode(err, domain.EINVALID))

	_, err = svc.AddItem(ctx, cart.ID, uuid.New(), 1)
	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
}

func TestCartOwnership(t *testing.T) {
	store := memstore.New()
	a, _ := seedCatalog(store)
	owner := customer()
	svc := NewCartService(store, store, testLogger())

	cart, err := svc.CartForRequest(userContext(owner), nil)
	require.NoError(t, err)

	// Same user gets the same cart back.
	again, err := svc.CartForRequest(userContext(owner), nil)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)

	// Another user cannot touch it.
	_, err = svc.AddItem(userContext(customer()), cart.ID, a.ID, 1)
	assert.True(t, domain.IsCode(err, domain.EFORBIDDEN))

	// Nor can an anonymous caller.
	_, err = svc.AddItem(context.Background(), cart.ID, a.ID, 1)
	assert.True(t, domain.IsCode(err, domain.EFORBIDDEN))
}
