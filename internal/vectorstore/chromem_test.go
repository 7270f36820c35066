package vectorstore_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/vectorstore"
)

const testDim = 4

// unit returns a normalized copy of v.
func unit(v ...float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	n := float32(math.Sqrt(sum))
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

func entry(id, user, text string, vec []float32) vectorstore.Entry {
	return vectorstore.Entry{
		ID:        id,
		Text:      text,
		Embedding: vec,
		Metadata: map[string]string{
			vectorstore.MetaUserName:  user,
			vectorstore.MetaUserID:    "uid-" + user,
			vectorstore.MetaTimestamp: "2024-01-01T00:00:00Z",
			vectorstore.MetaDomain:    vectorstore.DomainMessage,
		},
	}
}

func newTestChromemStore(t *testing.T) *vectorstore.ChromemStore {
	t.Helper()
	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Collection: "test_messages",
		VectorSize: testDim,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestChromemStore_ImplementsStoreButNotTruncater(t *testing.T) {
	var s vectorstore.Store = newTestChromemStore(t)
	_, ok := s.(vectorstore.Truncater)
	assert.False(t, ok)
}

func TestChromemStore_EmptyQuery(t *testing.T) {
	store := newTestChromemStore(t)

	hits, err := store.Query(context.Background(), unit(1, 0, 0, 0), 5, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChromemStore_AddQueryOrdering(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []vectorstore.Entry{
		entry("m1", "Alice Smith", "exact", unit(1, 0, 0, 0)),
		entry("m2", "Alice Smith", "close", unit(1, 0.2, 0, 0)),
		entry("m3", "Bob Lee", "far", unit(0, 0, 1, 0)),
	}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	hits, err := store.Query(ctx, unit(1, 0, 0, 0), 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3, "k is capped at the collection size")

	assert.Equal(t, "m1", hits[0].ID)
	assert.Equal(t, "exact", hits[0].Text)
	assert.InDelta(t, 0, hits[0].Distance, 1e-5)
	assert.Equal(t, "m2", hits[1].ID)
	assert.Equal(t, "m3", hits[2].ID)
	assert.InDelta(t, 1, hits[2].Distance, 1e-5)

	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}
	assert.Equal(t, "Alice Smith", hits[0].Metadata[vectorstore.MetaUserName])
	assert.Len(t, hits[0].Embedding, testDim)
}

func TestChromemStore_QueryFilter(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []vectorstore.Entry{
		entry("a1", "Alice Smith", "a1", unit(1, 0, 0, 0)),
		entry("b1", "Bob Lee", "b1", unit(1, 0.1, 0, 0)),
		entry("b2", "Bob Lee", "b2", unit(0, 1, 0, 0)),
	}))

	hits, err := store.Query(ctx, unit(1, 0, 0, 0), 3, vectorstore.UserFilter("Bob Lee"))
	require.NoError(t, err)
	require.Len(t, hits, 2, "filter returns fewer than k")
	for _, h := range hits {
		assert.Equal(t, "Bob Lee", h.Metadata[vectorstore.MetaUserName])
	}

	hits, err = store.Query(ctx, unit(1, 0, 0, 0), 3, vectorstore.UserFilter("Nobody"))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChromemStore_DeleteWhereDomainClearsAll(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	var entries []vectorstore.Entry
	for i := 0; i < 10; i++ {
		entries = append(entries, entry(fmt.Sprintf("m%d", i), "Alice Smith", fmt.Sprintf("text %d", i), unit(1, float32(i), 0, 0)))
	}
	require.NoError(t, store.Add(ctx, entries))

	require.NoError(t, store.DeleteWhere(ctx, vectorstore.DomainFilter()))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestChromemStore_DeleteWhereUser(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []vectorstore.Entry{
		entry("a1", "Alice Smith", "a1", unit(1, 0, 0, 0)),
		entry("b1", "Bob Lee", "b1", unit(0, 1, 0, 0)),
	}))
	require.NoError(t, store.DeleteWhere(ctx, vectorstore.UserFilter("Alice Smith")))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChromemStore_Validation(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	t.Run("empty add", func(t *testing.T) {
		assert.ErrorIs(t, store.Add(ctx, nil), vectorstore.ErrEmptyEntries)
	})
	t.Run("missing id", func(t *testing.T) {
		err := store.Add(ctx, []vectorstore.Entry{entry("", "A", "x", unit(1, 0, 0, 0))})
		assert.ErrorIs(t, err, vectorstore.ErrInvalidEntry)
	})
	t.Run("wrong dimension", func(t *testing.T) {
		err := store.Add(ctx, []vectorstore.Entry{entry("x", "A", "x", unit(1, 0))})
		assert.ErrorIs(t, err, vectorstore.ErrInvalidEntry)
	})
	t.Run("non-positive k", func(t *testing.T) {
		_, err := store.Query(ctx, unit(1, 0, 0, 0), 0, nil)
		assert.ErrorIs(t, err, vectorstore.ErrInvalidQuery)
	})
	t.Run("empty vector", func(t *testing.T) {
		_, err := store.Query(ctx, nil, 3, nil)
		assert.ErrorIs(t, err, vectorstore.ErrInvalidQuery)
	})
	t.Run("delete without filter", func(t *testing.T) {
		assert.ErrorIs(t, store.DeleteWhere(ctx, nil), vectorstore.ErrInvalidFilter)
	})
	t.Run("filter with empty value", func(t *testing.T) {
		_, err := store.Query(ctx, unit(1, 0, 0, 0), 1, map[string]string{vectorstore.MetaUserName: ""})
		assert.ErrorIs(t, err, vectorstore.ErrInvalidFilter)
	})
}

func TestChromemStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	cfg := vectorstore.ChromemConfig{Path: dir, Collection: "persisted", VectorSize: testDim}

	store, err := vectorstore.NewChromemStore(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, []vectorstore.Entry{
		entry("m1", "Alice Smith", "kept", unit(1, 0, 0, 0)),
	}))
	require.NoError(t, store.Close())

	reopened, err := vectorstore.NewChromemStore(cfg, nil)
	require.NoError(t, err)
	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChromemConfig_Validate(t *testing.T) {
	cfg := vectorstore.ChromemConfig{Collection: "Bad-Name"}
	cfg.ApplyDefaults()
	assert.ErrorIs(t, cfg.Validate(), vectorstore.ErrInvalidCollectionName)

	cfg = vectorstore.ChromemConfig{VectorSize: -1}
	cfg.ApplyDefaults()
	assert.ErrorIs(t, cfg.Validate(), vectorstore.ErrInvalidConfig)
}
