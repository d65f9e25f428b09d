package service

import (
	"context"
	"sync"
	"testing"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/jobs"
	"github.com/dukerupert/emberbean/internal/memstore"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakePublisher records notifications, or fails every publish when err is set.
// Safe for concurrent publishes.
type fakePublisher struct {
	mu    sync.Mutex
	notes []jobs.Notification
	err   error
}

func (f *fakePublisher) PublishNotification(_ context.Context, n jobs.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.notes = append(f.notes, n)
	return nil
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func userContext(user domain.User) context.Context {
	return domain.NewContextWithUser(context.Background(), &user)
}

func customer() domain.User {
	return domain.User{ID: uuid.New(), Email: "casey@example.com", Role: domain.RoleCustomer}
}

func admin() domain.User {
	return domain.User{ID: uuid.New(), Email: "ops@emberbean.coffee", Role: domain.RoleAdmin}
}

// seedCatalog registers two purchasable products and returns them.
func seedCatalog(store *memstore.Store) (domain.Product, domain.Product) {
	ethiopia := domain.Product{
		ID:         uuid.New(),
		Name:       "Ethiopia Yirgacheffe",
		Slug:       "ethiopia-yirgacheffe",
		PriceCents: 1500,
		InStock:    true,
		Active:     true,
	}
	sumatra := domain.Product{
		ID:         uuid.New(),
		Name:       "Sumatra Dark Roast",
		Slug:       "sumatra-dark-roast",
		PriceCents: 700,
		InStock:    true,
		Active:     true,
	}
	store.SeedProduct(ethiopia)
	store.SeedProduct(sumatra)
	return ethiopia, sumatra
}

// seedCart creates a cart holding 2x first product and 1x second.
func seedCart(t *testing.T, store *memstore.Store, userID *uuid.UUID, a, b domain.Product) *domain.Cart {
	t.Helper()
	ctx := context.Background()

	cart, err := store.CreateCart(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, store.AddCartItem(ctx, cart.ID, a.ID, 2))
	require.NoError(t, store.AddCartItem(ctx, cart.ID, b.ID, 1))

	cart, err = store.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	return cart
}
