package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A rollback must only undo the failed transaction's own writes. Writes from
// other goroutines either land before the transaction opens or block until it
// finishes; neither way may the rollback erase them.
func TestWithTxFailurePreservesConcurrentCommit(t *testing.T) {
	store := New()
	ctx := context.Background()

	entered := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- store.WithTx(ctx, func(tx domain.Store) error {
			close(entered)
			if err := tx.CreateOrder(ctx, &domain.Order{
				PaymentIntentID: "pi_rolled_back",
				OrderNumber:     "EB-2026-000001",
				GuestEmail:      "guest@example.com",
			}); err != nil {
				return err
			}
			return errors.New("deadlock detected")
		})
	}()
	<-entered

	commitDone := make(chan error, 1)
	go func() {
		commitDone <- store.CreateOrder(ctx, &domain.Order{
			PaymentIntentID: "pi_committed",
			OrderNumber:     "EB-2026-000002",
			GuestEmail:      "other@example.com",
		})
	}()

	require.Error(t, <-txDone)
	require.NoError(t, <-commitDone)

	order, err := store.GetOrderByPaymentIntent(ctx, "pi_committed")
	require.NoError(t, err)
	assert.Equal(t, "EB-2026-000002", order.OrderNumber)

	_, err = store.GetOrderByPaymentIntent(ctx, "pi_rolled_back")
	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
}

func TestWithTxRollbackRestoresCounter(t *testing.T) {
	store := New()
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx domain.Store) error {
		seq, err := tx.AllocateOrderNumber(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, int64(1), seq)
		return errors.New("boom")
	})
	require.Error(t, err)

	// A failed allocation does not burn the sequence number.
	seq, err := store.AllocateOrderNumber(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestAllocateOrderNumberConcurrentlyUnique(t *testing.T) {
	store := New()
	ctx := context.Background()

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	seqs := make([]int64, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			seqs[i], errs[i] = store.AllocateOrderNumber(ctx, 2026)
		}(i)
	}
	close(start)
	wg.Wait()

	seen := make(map[int64]bool, workers)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[seqs[i]], "sequence %d allocated twice", seqs[i])
		seen[seqs[i]] = true
	}
	assert.Len(t, seen, workers)

	// The counter is per year.
	seq, err := store.AllocateOrderNumber(ctx, 2027)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}
