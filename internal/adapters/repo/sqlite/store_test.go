package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LedgerStore {
	t.Helper()

	store, err := NewLedgerStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestLedgerStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	err := store.Transact(ctx, func(tx ports.LedgerTx) error {
		device := domain.NewDeviceAccount("dev-1", now)
		device.PaidCredits = 2
		device.LastFreeDate = "2026-03-02"
		if err := tx.PutDevice(ctx, device); err != nil {
			return err
		}
		if err := tx.PutPool(ctx, domain.FreePool{UsedFreeCount: 1, Limit: 100, UpdatedAt: now}); err != nil {
			return err
		}
		return tx.InsertPayment(ctx, domain.PaymentRecord{
			TransactionID: "pi_1", DeviceID: "dev-1", Quantity: 2, AmountReceived: 40,
			Currency: "eur", Source: domain.SourceClientConfirm, CreatedAt: now,
		})
	})
	require.NoError(t, err)

	err = store.View(ctx, func(tx ports.LedgerTx) error {
		device, found, err := tx.Device(ctx, "dev-1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, int64(2), device.PaidCredits)
		assert.Equal(t, "2026-03-02", device.LastFreeDate)
		assert.Equal(t, int64(1), device.Version)
		assert.True(t, device.CreatedAt.Equal(now))

		pool, found, err := tx.Pool(ctx)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, int64(1), pool.UsedFreeCount)
		assert.Equal(t, int64(1), pool.Version)

		record, found, err := tx.Payment(ctx, "pi_1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, domain.SourceClientConfirm, record.Source)
		assert.Equal(t, int64(40), record.AmountReceived)

		records, err := tx.PaymentsForDevice(ctx, "dev-1")
		require.NoError(t, err)
		assert.Len(t, records, 1)

		_, found, err = tx.Payment(ctx, "pi_missing")
		require.NoError(t, err)
		assert.False(t, found)
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerStoreStaleVersionIsConflict(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Transact(ctx, func(tx ports.LedgerTx) error {
		return tx.PutDevice(ctx, domain.DeviceAccount{ID: "dev-1", PaidCredits: 1})
	}))

	err := store.Transact(ctx, func(tx ports.LedgerTx) error {
		return tx.PutDevice(ctx, domain.DeviceAccount{ID: "dev-1", PaidCredits: 5})
	})
	require.ErrorIs(t, err, domain.ErrTxConflict)

	err = store.Transact(ctx, func(tx ports.LedgerTx) error {
		return tx.PutDevice(ctx, domain.DeviceAccount{ID: "dev-1", PaidCredits: 5, Version: 7})
	})
	require.ErrorIs(t, err, domain.ErrTxConflict)
}

func TestLedgerStoreDuplicatePaymentIsConflict(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	record := domain.PaymentRecord{TransactionID: "pi_1", DeviceID: "dev-1", Quantity: 1, Currency: "eur", Source: domain.SourceWebhook}

	require.NoError(t, store.Transact(ctx, func(tx ports.LedgerTx) error {
		return tx.InsertPayment(ctx, record)
	}))

	err := store.Transact(ctx, func(tx ports.LedgerTx) error {
		return tx.InsertPayment(ctx, record)
	})
	require.ErrorIs(t, err, domain.ErrTxConflict)
}

func TestLedgerStoreFailedTransactionRollsBack(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transact(ctx, func(tx ports.LedgerTx) error {
		require.NoError(t, tx.PutDevice(ctx, domain.DeviceAccount{ID: "dev-1", PaidCredits: 3}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = store.View(ctx, func(tx ports.LedgerTx) error {
		_, found, err := tx.Device(ctx, "dev-1")
		require.NoError(t, err)
		assert.False(t, found)
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerStoreViewRejectsWrites(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	err := store.View(context.Background(), func(tx ports.LedgerTx) error {
		return tx.InsertPayment(context.Background(), domain.PaymentRecord{TransactionID: "pi_1"})
	})
	require.ErrorIs(t, err, errReadOnly)
}

func TestLedgerStoreInMemory(t *testing.T) {
	t.Parallel()

	store, err := NewLedgerStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Transact(ctx, func(tx ports.LedgerTx) error {
		return tx.PutPool(ctx, domain.NewFreePool(3))
	}))

	err = store.View(ctx, func(tx ports.LedgerTx) error {
		pool, found, err := tx.Pool(ctx)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, int64(3), pool.Limit)
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerStoreSerializesConcurrentWriters(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Transact(ctx, func(tx ports.LedgerTx) error {
		return tx.PutDevice(ctx, domain.DeviceAccount{ID: "dev-1"})
	}))

	const writers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		committed int
	)
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			err := store.Transact(ctx, func(tx ports.LedgerTx) error {
				device, _, err := tx.Device(ctx, "dev-1")
				if err != nil {
					return err
				}
				device.PaidCredits++
				return tx.PutDevice(ctx, device)
			})
			if err == nil {
				mu.Lock()
				committed++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrTxConflict)
		}()
	}
	wg.Wait()

	err := store.View(ctx, func(tx ports.LedgerTx) error {
		device, _, err := tx.Device(ctx, "dev-1")
		require.NoError(t, err)
		assert.Equal(t, int64(committed), device.PaidCredits)
		return nil
	})
	require.NoError(t, err)
}
