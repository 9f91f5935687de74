package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/conversation-api/internal/domain/resolver"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	var active resolver.ActiveConversation
	found, err := store.Get(ctx, "sess-1", "conversation.active", &active)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "sess-1", "conversation.active", resolver.ActiveConversation{
		ConversationID: "conv_1",
		ThreadID:       "thread_1",
		StartedAt:      42,
	}))

	found, err = store.Get(ctx, "sess-1", "conversation.active", &active)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "conv_1", active.ConversationID)
	assert.Equal(t, int64(42), active.StartedAt)

	has, err := store.Has(ctx, "sess-2", "conversation.active")
	require.NoError(t, err)
	assert.False(t, has, "sessions are isolated")

	require.NoError(t, store.Delete(ctx, "sess-1", "conversation.active"))
	has, err = store.Has(ctx, "sess-1", "conversation.active")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "sess-1", "k", "v"))
	has, _ := store.Has(ctx, "sess-1", "k")
	assert.True(t, has)

	now = now.Add(time.Minute)
	has, _ = store.Has(ctx, "sess-1", "k")
	assert.False(t, has)
}

func TestMemoryStore_SetSweepsUnreadExpiredEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "sess-1", "k", "v"))
	require.NoError(t, store.Set(ctx, "sess-2", "k", "v"))
	assert.Len(t, store.entries, 2)

	now = now.Add(2 * time.Minute)
	require.NoError(t, store.Set(ctx, "sess-3", "k", "v"))

	assert.Len(t, store.entries, 1)
	has, err := store.Has(ctx, "sess-3", "k")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestMemoryStore_Sessions(t *testing.T) {
	ctx := context.Background()
	sessions := resolver.NewSessions(NewMemoryStore(0))

	active, err := sessions.Active(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	require.NoError(t, sessions.SetActive(ctx, "sess-1", resolver.ActiveConversation{ConversationID: "conv_1", ThreadID: "thread_1"}))
	active, err = sessions.Active(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "thread_1", active.ThreadID)

	require.NoError(t, sessions.ClearActive(ctx, "sess-1"))
	active, err = sessions.Active(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, active)
}
