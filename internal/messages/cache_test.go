package messages

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		{ID: "3", UserID: "u2", UserName: "Vikram Desai", Text: "Change my seat to aisle", Timestamp: "2025-01-02T10:00:00Z"},
		{ID: "1", UserID: "u1", UserName: "Layla Kawaguchi", Text: "Book a table for two at Nobu", Timestamp: ""},
		{ID: "2", UserID: "u1", UserName: "Layla Kawaguchi", Text: "Thanks, that’s perfect", Timestamp: "2024-12-30T08:15:00+01:00"},
	}
}

func newMemCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_EmptyLoad(t *testing.T) {
	c := newMemCache(t)
	_, _, err := c.Load(context.Background())
	assert.ErrorIs(t, err, ErrCacheEmpty)
}

func TestCache_RoundTripPreservesOrder(t *testing.T) {
	c := newMemCache(t)
	ctx := context.Background()
	stamp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Store(ctx, sampleRecords(), stamp))

	got, fetchedAt, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
	assert.True(t, stamp.Equal(fetchedAt))
}

func TestCache_StoreReplaces(t *testing.T) {
	c := newMemCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, sampleRecords(), time.Now()))
	require.NoError(t, c.Store(ctx, sampleRecords()[:1], time.Now()))

	got, _, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords()[:1], got)

	require.NoError(t, c.Store(ctx, nil, time.Now()))
	got, _, err = c.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCache_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "messages.db")
	ctx := context.Background()

	c, err := OpenCache(path)
	require.NoError(t, err)
	require.NoError(t, c.Store(ctx, sampleRecords(), time.Now()))
	require.NoError(t, c.Close())

	c, err = OpenCache(path)
	require.NoError(t, err)
	defer c.Close()

	got, _, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, path, c.Path())
}

func TestNames(t *testing.T) {
	recs := append(sampleRecords(), Record{ID: "4", UserName: ""})
	assert.Equal(t, []string{"Layla Kawaguchi", "Vikram Desai"}, Names(recs))
	assert.Empty(t, Names(nil))
}
