package recent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRecordAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "u1", "laptop stand"))
	require.NoError(t, s.Record(ctx, "u1", "desk lamp"))

	got, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"desk lamp", "laptop stand"}, got, "newest first")
}

func TestMemoryStoreDedup(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "u1", "laptop"))
	require.NoError(t, s.Record(ctx, "u1", "mouse"))
	require.NoError(t, s.Record(ctx, "u1", "laptop"))

	got, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop", "mouse"}, got, "repeat moves to front, no duplicate")
}

func TestMemoryStoreCap(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < maxEntries+5; i++ {
		require.NoError(t, s.Record(ctx, "u1", fmt.Sprintf("query %d", i)))
	}

	got, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, maxEntries)
	assert.Equal(t, fmt.Sprintf("query %d", maxEntries+4), got[0])
}

func TestMemoryStoreIgnoresEmpty(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "", "laptop"))
	require.NoError(t, s.Record(ctx, "u1", "   "))

	got, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "u1", "laptop"))
	require.NoError(t, s.Clear(ctx, "u1"))

	got, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStoreIsolatesUsers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "u1", "laptop"))
	require.NoError(t, s.Record(ctx, "u2", "keyboard"))

	got, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop"}, got)
}
