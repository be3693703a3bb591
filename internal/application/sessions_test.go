package application

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/beright/internal/adapters/sessions/memory"
	"github.com/bnema/beright/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T, cfg SessionConfig) (*SessionManager, *Ledger, *steppingClock) {
	t.Helper()

	clock := &steppingClock{now: ledgerNow}
	ledger := NewLedger(newTOMLStore(t), LedgerConfig{Pricing: testPricing, PoolLimit: 100}, clock, nil)
	manager := NewSessionManager(ledger, memory.NewStore(), cfg, clock, nil)

	return manager, ledger, clock
}

func fundDevice(t *testing.T, ledger *Ledger, id domain.DeviceID, quantity int64) {
	t.Helper()

	_, err := ledger.CreditPurchase(context.Background(), domain.Purchase{
		DeviceID:       id,
		Quantity:       quantity,
		TransactionID:  domain.TransactionID("pi_fund_" + string(id)),
		AmountReceived: quantity * testPricing.UnitPrice,
		Currency:       testPricing.Currency,
		Source:         domain.SourceManual,
	})
	require.NoError(t, err)
}

func TestSessionReuseChargesOncePerConversation(t *testing.T) {
	t.Parallel()

	manager, ledger, _ := newTestSessions(t, SessionConfig{})
	ctx := context.Background()
	fundDevice(t, ledger, "dev-1", 3)

	// Today's free grant goes first.
	_, err := ledger.ConsumeOne(ctx, "dev-1")
	require.NoError(t, err)

	started, err := manager.Start(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModePaid, started.Session.Mode)
	assert.Len(t, started.Session.Token, 43)

	for i := 0; i < 6; i++ {
		auth, err := manager.Authorize(ctx, "dev-1", started.Session.Token)
		require.NoError(t, err)
		assert.False(t, auth.Charged)
		assert.Equal(t, domain.ModePaid, auth.Mode)
	}

	snapshot, err := ledger.Snapshot(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), snapshot.PaidCredits)
}

func TestSessionInvalidTokenFallsBackToCharging(t *testing.T) {
	t.Parallel()

	manager, ledger, clock := newTestSessions(t, SessionConfig{TTL: time.Minute})
	ctx := context.Background()
	fundDevice(t, ledger, "dev-1", 5)

	started, err := manager.Start(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeFree, started.Session.Mode)

	auth, err := manager.Authorize(ctx, "dev-2", started.Session.Token)
	require.NoError(t, err)
	assert.True(t, auth.Charged)
	assert.Equal(t, domain.DeviceID("dev-2"), auth.Session.DeviceID)

	auth, err = manager.Authorize(ctx, "dev-1", "forged")
	require.NoError(t, err)
	assert.True(t, auth.Charged)
	assert.NotEqual(t, started.Session.Token, auth.Session.Token)

	clock.Advance(time.Minute)
	auth, err = manager.Authorize(ctx, "dev-1", started.Session.Token)
	require.NoError(t, err)
	assert.True(t, auth.Charged)

	auth, err = manager.Authorize(ctx, "dev-1", "")
	require.NoError(t, err)
	assert.True(t, auth.Charged)

	snapshot, err := ledger.Snapshot(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), snapshot.PaidCredits)
}

func TestSessionValidateRejectsExpiredAndForeignTokens(t *testing.T) {
	t.Parallel()

	manager, _, clock := newTestSessions(t, SessionConfig{TTL: 10 * time.Minute})
	ctx := context.Background()

	started, err := manager.Start(ctx, "dev-1")
	require.NoError(t, err)

	mode, err := manager.Validate(ctx, started.Session.Token, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeFree, mode)

	_, err = manager.Validate(ctx, started.Session.Token, "dev-2")
	require.ErrorIs(t, err, domain.ErrInvalidSession)

	_, err = manager.Validate(ctx, "", "dev-1")
	require.ErrorIs(t, err, domain.ErrInvalidSession)

	clock.Advance(10 * time.Minute)
	_, err = manager.Validate(ctx, started.Session.Token, "dev-1")
	require.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestSessionStartWithoutCreditsIssuesNoToken(t *testing.T) {
	t.Parallel()

	manager, ledger, _ := newTestSessions(t, SessionConfig{})
	ctx := context.Background()

	_, err := ledger.ConsumeOne(ctx, "dev-1")
	require.NoError(t, err)

	_, err = manager.Start(ctx, "dev-1")
	require.ErrorIs(t, err, domain.ErrNoCredits)
}

func TestSessionEndRespectsRevocationSetting(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	locked, _, _ := newTestSessions(t, SessionConfig{})
	started, err := locked.Start(ctx, "dev-1")
	require.NoError(t, err)
	require.ErrorIs(t, locked.End(ctx, "dev-1", started.Session.Token), domain.ErrRevocationDisabled)

	revocable, _, _ := newTestSessions(t, SessionConfig{Revocable: true})
	started, err = revocable.Start(ctx, "dev-1")
	require.NoError(t, err)

	require.ErrorIs(t, revocable.End(ctx, "dev-2", started.Session.Token), domain.ErrInvalidSession)
	require.NoError(t, revocable.End(ctx, "dev-1", started.Session.Token))

	_, err = revocable.Validate(ctx, started.Session.Token, "dev-1")
	require.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestSessionPruneRemovesExpired(t *testing.T) {
	t.Parallel()

	manager, ledger, clock := newTestSessions(t, SessionConfig{TTL: time.Minute})
	ctx := context.Background()
	fundDevice(t, ledger, "dev-1", 2)

	_, err := manager.Start(ctx, "dev-1")
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	_, err = manager.Start(ctx, "dev-1")
	require.NoError(t, err)

	clock.Advance(45 * time.Second)
	removed, err := manager.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
