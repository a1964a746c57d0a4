package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	snapshot, err := store.GetOrCreate(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", snapshot.SessionID)
	assert.Empty(t, snapshot.Turns)
	assert.False(t, snapshot.HasSQL)

	require.NoError(t, store.RecordTurn(ctx, "s-1", RoleUser, "how many operations?"))
	require.NoError(t, store.RecordTurn(ctx, "s-1", RoleAssistant, "There are 42."))
	require.NoError(t, store.SetLastSQL(ctx, "s-1", "SELECT COUNT(*) FROM operacoes_logisticas"))

	snapshot, err = store.GetOrCreate(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, snapshot.Turns, 2)
	assert.Equal(t, RoleUser, snapshot.Turns[0].Role)
	assert.Equal(t, "There are 42.", snapshot.Turns[1].Text)
	assert.True(t, snapshot.HasSQL)
	assert.Equal(t, "SELECT COUNT(*) FROM operacoes_logisticas", snapshot.LastSQL)

	sql, ok, err := store.LastSQL(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "SELECT COUNT(*) FROM operacoes_logisticas", sql)
}

func TestMemoryStoreLastSQLUnset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.LastSQL(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.RecordTurn(ctx, "a", RoleUser, "hello"))

	snapshot, err := store.GetOrCreate(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, snapshot.Turns)
}

func TestMemoryStoreSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.RecordTurn(ctx, "s-1", RoleUser, "original"))

	snapshot, err := store.GetOrCreate(ctx, "s-1")
	require.NoError(t, err)
	snapshot.Turns[0].Text = "mutated"

	fresh, err := store.GetOrCreate(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "original", fresh.Turns[0].Text)
}

func TestTrimTurns(t *testing.T) {
	turns := []Turn{
		{RoleUser, "q1"}, {RoleAssistant, "a1"},
		{RoleUser, "q2"}, {RoleAssistant, "a2"},
		{RoleUser, "q3"}, {RoleAssistant, "a3"},
		{RoleUser, "q4"}, {RoleAssistant, "a4"},
	}

	trimmed := TrimTurns(turns, 6)
	require.Len(t, trimmed, 6)
	assert.Equal(t, "q2", trimmed[0].Text)
	assert.Equal(t, "a4", trimmed[5].Text)

	assert.Len(t, TrimTurns(turns, 0), len(turns))
	assert.Len(t, TrimTurns(turns, 100), len(turns))
	assert.Empty(t, TrimTurns(nil, 6))
}
