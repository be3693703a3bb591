package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreLifecycle(t *testing.T) {
	t.Parallel()

	sessions := newTestStore(t).Sessions()
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	live := domain.ConversationSession{Token: "live", DeviceID: "dev-1", Mode: domain.ModeFree, CreatedAt: now, ExpiresAt: now.Add(10 * time.Minute)}
	stale := domain.ConversationSession{Token: "stale", DeviceID: "dev-2", Mode: domain.ModePaid, CreatedAt: now.Add(-time.Hour), ExpiresAt: now}
	require.NoError(t, sessions.Save(ctx, live))
	require.NoError(t, sessions.Save(ctx, stale))

	got, found, err := sessions.Get(ctx, "live")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.DeviceID("dev-1"), got.DeviceID)
	assert.Equal(t, domain.ModeFree, got.Mode)
	assert.True(t, got.ExpiresAt.Equal(live.ExpiresAt))
	assert.True(t, got.CreatedAt.Equal(now))

	removed, err := sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, found, err = sessions.Get(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, sessions.Delete(ctx, "live"))
	_, found, err = sessions.Get(ctx, "live")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).UTC()

	first, err := NewLedgerStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Sessions().Save(ctx, domain.ConversationSession{
		Token: "tok", DeviceID: "dev-1", Mode: domain.ModePaid, CreatedAt: time.Now(), ExpiresAt: expires,
	}))
	require.NoError(t, first.Close())

	second, err := NewLedgerStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	got, found, err := second.Sessions().Get(ctx, "tok")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.ExpiresAt.Equal(expires))
}
