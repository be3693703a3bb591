package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T, store ports.LedgerStore, cfg LedgerConfig) *Ledger {
	t.Helper()

	if cfg.Pricing == (domain.Pricing{}) {
		cfg.Pricing = testPricing
	}
	return NewLedger(store, cfg, fixedClock{now: ledgerNow}, nil)
}

func TestLedgerFreeGrantThenNoCredits(t *testing.T) {
	t.Parallel()

	for _, backend := range ledgerBackends {
		t.Run(backend.name, func(t *testing.T) {
			t.Parallel()

			ledger := newTestLedger(t, backend.open(t), LedgerConfig{PoolLimit: 100})
			ctx := context.Background()

			result, err := ledger.ConsumeOne(ctx, "dev-1")
			require.NoError(t, err)
			assert.Equal(t, domain.ModeFree, result.Mode)
			assert.False(t, result.Snapshot.FreeAvailableToday)
			assert.Equal(t, int64(99), result.Snapshot.FreePoolRemaining)

			_, err = ledger.ConsumeOne(ctx, "dev-1")
			require.ErrorIs(t, err, domain.ErrNoCredits)

			snapshot, err := ledger.Snapshot(ctx, "dev-1")
			require.NoError(t, err)
			assert.Equal(t, int64(0), snapshot.PaidCredits)
			assert.Equal(t, int64(1), snapshot.FreeCreditsUsed)
			assert.Equal(t, int64(99), snapshot.FreePoolRemaining)
		})
	}
}

func TestLedgerSnapshotForUnknownDeviceDoesNotWrite(t *testing.T) {
	t.Parallel()

	store := newTOMLStore(t)
	ledger := newTestLedger(t, store, LedgerConfig{PoolLimit: 10})

	snapshot, err := ledger.Snapshot(context.Background(), "dev-new")
	require.NoError(t, err)
	assert.True(t, snapshot.FreeAvailableToday)
	assert.Equal(t, int64(10), snapshot.FreePoolRemaining)
	assert.Equal(t, int64(20), snapshot.UnitPrice)
	assert.Equal(t, "eur", snapshot.Currency)

	err = store.View(context.Background(), func(tx ports.LedgerTx) error {
		_, found, err := tx.Device(context.Background(), "dev-new")
		require.NoError(t, err)
		assert.False(t, found)
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerRejectsMissingDeviceID(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, newTOMLStore(t), LedgerConfig{})

	_, err := ledger.ConsumeOne(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrMissingDeviceID)

	_, err = ledger.Snapshot(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrMissingDeviceID)
}

func TestLedgerCreditPurchaseIsIdempotent(t *testing.T) {
	t.Parallel()

	for _, backend := range ledgerBackends {
		t.Run(backend.name, func(t *testing.T) {
			t.Parallel()

			ledger := newTestLedger(t, backend.open(t), LedgerConfig{})
			ctx := context.Background()
			purchase := domain.Purchase{
				DeviceID:       "dev-1",
				Quantity:       5,
				TransactionID:  "pi_123",
				AmountReceived: 100,
				Currency:       "EUR",
				Source:         domain.SourceClientConfirm,
			}

			first, err := ledger.CreditPurchase(ctx, purchase)
			require.NoError(t, err)
			assert.True(t, first.Applied)
			assert.Equal(t, int64(5), first.Snapshot.PaidCredits)

			purchase.Source = domain.SourceWebhook
			second, err := ledger.CreditPurchase(ctx, purchase)
			require.NoError(t, err)
			assert.False(t, second.Applied)
			assert.Equal(t, int64(5), second.Snapshot.PaidCredits)
			assert.Equal(t, int64(5), second.Snapshot.PaidCreditsPurchased)

			records, err := ledger.Payments(ctx, "dev-1")
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, domain.SourceClientConfirm, records[0].Source)
			assert.Equal(t, "eur", records[0].Currency)
		})
	}
}

func TestLedgerConcurrentDuplicatePurchaseCreditsOnce(t *testing.T) {
	t.Parallel()

	for _, backend := range ledgerBackends {
		t.Run(backend.name, func(t *testing.T) {
			t.Parallel()

			ledger := newTestLedger(t, backend.open(t), LedgerConfig{MaxAttempts: 200})
			ctx := context.Background()
			purchase := domain.Purchase{
				DeviceID: "dev-1", Quantity: 5, TransactionID: "pi_dup",
				AmountReceived: 100, Currency: "eur", Source: domain.SourceWebhook,
			}

			const callers = 8
			var wg sync.WaitGroup
			errs := make(chan error, callers)
			wg.Add(callers)
			for i := 0; i < callers; i++ {
				go func() {
					defer wg.Done()
					_, err := ledger.CreditPurchase(ctx, purchase)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				require.NoError(t, err)
			}

			snapshot, err := ledger.Snapshot(ctx, "dev-1")
			require.NoError(t, err)
			assert.Equal(t, int64(5), snapshot.PaidCredits)

			records, err := ledger.Payments(ctx, "dev-1")
			require.NoError(t, err)
			assert.Len(t, records, 1)
		})
	}
}

func TestLedgerConcurrentConsumptionNeverExceedsPoolLimit(t *testing.T) {
	t.Parallel()

	for _, backend := range ledgerBackends {
		t.Run(backend.name, func(t *testing.T) {
			t.Parallel()

			const (
				limit   = 5
				devices = 12
			)
			ledger := newTestLedger(t, backend.open(t), LedgerConfig{PoolLimit: limit, MaxAttempts: 200})
			ctx := context.Background()

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				granted int
			)
			wg.Add(devices)
			for i := 0; i < devices; i++ {
				id := domain.DeviceID(fmt.Sprintf("dev-%d", i))
				go func() {
					defer wg.Done()
					result, err := ledger.ConsumeOne(ctx, id)
					if err != nil {
						assert.ErrorIs(t, err, domain.ErrNoCredits)
						return
					}
					assert.Equal(t, domain.ModeFree, result.Mode)
					mu.Lock()
					granted++
					mu.Unlock()
				}()
			}
			wg.Wait()

			assert.Equal(t, limit, granted)

			snapshot, err := ledger.Snapshot(ctx, "dev-observer")
			require.NoError(t, err)
			assert.Equal(t, int64(0), snapshot.FreePoolRemaining)
			assert.False(t, snapshot.FreeAvailableToday)
		})
	}
}

func TestLedgerPaidBalanceNeverNegative(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, newSQLiteStore(t), LedgerConfig{PoolLimit: 1, MaxAttempts: 200})
	ctx := context.Background()

	_, err := ledger.CreditPurchase(ctx, domain.Purchase{
		DeviceID: "dev-1", Quantity: 3, TransactionID: "pi_1",
		AmountReceived: 60, Currency: "eur", Source: domain.SourceManual,
	})
	require.NoError(t, err)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			if _, err := ledger.ConsumeOne(ctx, "dev-1"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// One free grant plus three paid credits.
	assert.Equal(t, 4, succeeded)

	snapshot, err := ledger.Snapshot(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.PaidCredits)
	assert.Equal(t, int64(3), snapshot.PaidCreditsUsed)
}

func TestLedgerPaidFirstPolicy(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(t, newTOMLStore(t), LedgerConfig{Policy: domain.PolicyPaidFirst})
	ctx := context.Background()

	_, err := ledger.CreditPurchase(ctx, domain.Purchase{
		DeviceID: "dev-1", Quantity: 1, TransactionID: "pi_1",
		AmountReceived: 20, Currency: "eur", Source: domain.SourceManual,
	})
	require.NoError(t, err)

	first, err := ledger.ConsumeOne(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModePaid, first.Mode)
	assert.True(t, first.Snapshot.FreeAvailableToday)

	second, err := ledger.ConsumeOne(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeFree, second.Mode)
}

func TestLedgerLoweredPoolLimitKeepsGrantedCount(t *testing.T) {
	t.Parallel()

	store := newTOMLStore(t)
	ctx := context.Background()

	generous := newTestLedger(t, store, LedgerConfig{PoolLimit: 10})
	for i := 0; i < 3; i++ {
		_, err := generous.ConsumeOne(ctx, domain.DeviceID(fmt.Sprintf("dev-%d", i)))
		require.NoError(t, err)
	}

	strict := newTestLedger(t, store, LedgerConfig{PoolLimit: 2})
	_, err := strict.ConsumeOne(ctx, "dev-late")
	require.ErrorIs(t, err, domain.ErrNoCredits)

	snapshot, err := strict.Snapshot(ctx, "dev-late")
	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.FreePoolRemaining)
}

type conflictingStore struct {
	ports.LedgerStore
	mu    sync.Mutex
	calls int
	err   error
}

func (s *conflictingStore) Transact(context.Context, func(tx ports.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func TestLedgerGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	store := &conflictingStore{err: fmt.Errorf("revision moved: %w", domain.ErrTxConflict)}
	ledger := newTestLedger(t, store, LedgerConfig{MaxAttempts: 3})
	ledger.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	_, err := ledger.ConsumeOne(context.Background(), "dev-1")
	require.ErrorIs(t, err, domain.ErrTxConflict)
	assert.ErrorContains(t, err, "gave up after 3 attempts")
	assert.Equal(t, 3, store.calls)
}

func TestLedgerStorageFailurePropagatesWithoutRetry(t *testing.T) {
	t.Parallel()

	diskFull := errors.New("disk full")
	store := &conflictingStore{err: diskFull}
	ledger := newTestLedger(t, store, LedgerConfig{})
	ledger.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	_, err := ledger.CreditPurchase(context.Background(), domain.Purchase{
		DeviceID: "dev-1", Quantity: 1, TransactionID: "pi_1", Currency: "eur", Source: domain.SourceManual,
	})
	require.ErrorIs(t, err, diskFull)
	assert.Equal(t, 1, store.calls)
}
