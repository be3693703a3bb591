package memory

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveGetDelete(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	session := domain.ConversationSession{Token: "tok", DeviceID: "dev-1", Mode: domain.ModeFree, CreatedAt: now, ExpiresAt: now.Add(time.Minute)}

	require.NoError(t, store.Save(ctx, session))

	got, found, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, session, got)

	require.NoError(t, store.Delete(ctx, "tok"))
	_, found, err = store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreDeleteExpired(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, domain.ConversationSession{Token: "old", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, store.Save(ctx, domain.ConversationSession{Token: "edge", ExpiresAt: now}))
	require.NoError(t, store.Save(ctx, domain.ConversationSession{Token: "live", ExpiresAt: now.Add(time.Minute)}))

	removed, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.Len())
}
