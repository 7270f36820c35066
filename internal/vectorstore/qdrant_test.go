package vectorstore

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestQdrantConfig_Defaults(t *testing.T) {
	cfg := QdrantConfig{VectorSize: 384}
	cfg.ApplyDefaults()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6334, cfg.Port)
	assert.Equal(t, "member_messages", cfg.Collection)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.NoError(t, cfg.Validate())
}

func TestQdrantConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     QdrantConfig
		wantErr error
	}{
		{"missing host", QdrantConfig{Port: 6334, Collection: "c", VectorSize: 4}, ErrInvalidConfig},
		{"bad port", QdrantConfig{Host: "h", Port: 70000, Collection: "c", VectorSize: 4}, ErrInvalidConfig},
		{"no vector size", QdrantConfig{Host: "h", Port: 6334, Collection: "c"}, ErrInvalidConfig},
		{"bad collection", QdrantConfig{Host: "h", Port: 6334, Collection: "../etc", VectorSize: 4}, ErrInvalidCollectionName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.cfg.Validate(), tt.wantErr)
		})
	}
}

func TestValidateCollectionName(t *testing.T) {
	assert.NoError(t, ValidateCollectionName("member_messages"))
	assert.Error(t, ValidateCollectionName(""))
	assert.Error(t, ValidateCollectionName("Member"))
	assert.Error(t, ValidateCollectionName("with space"))
	assert.Error(t, ValidateCollectionName("../traversal"))
}

func TestIsTransientError(t *testing.T) {
	assert.False(t, IsTransientError(nil))
	assert.False(t, IsTransientError(errors.New("plain")))
	assert.True(t, IsTransientError(status.Error(grpccodes.Unavailable, "down")))
	assert.True(t, IsTransientError(status.Error(grpccodes.DeadlineExceeded, "slow")))
	assert.False(t, IsTransientError(status.Error(grpccodes.InvalidArgument, "bad")))
	assert.False(t, IsTransientError(status.Error(grpccodes.NotFound, "missing")))
}

func TestPointID(t *testing.T) {
	id := PointID("msg-123")
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, PointID("msg-123"), "derived IDs are stable")
	assert.NotEqual(t, id, PointID("msg-124"))

	existing := "2f1b7c9e-4a43-4c4e-9a7d-1d2f3b4c5d6e"
	assert.Equal(t, existing, PointID(existing))
}

func TestToQdrantFilter(t *testing.T) {
	assert.Nil(t, toQdrantFilter(nil))

	f := toQdrantFilter(map[string]string{MetaUserName: "Alice Smith"})
	require.NotNil(t, f)
	require.Len(t, f.Must, 1)
	field := f.Must[0].GetField()
	require.NotNil(t, field)
	assert.Equal(t, MetaUserName, field.GetKey())
	assert.Equal(t, "Alice Smith", field.GetMatch().GetKeyword())
}

func TestHitFromPoint(t *testing.T) {
	p := &qdrant.ScoredPoint{
		Score: 0.75,
		Payload: qdrant.NewValueMap(map[string]any{
			payloadText:   "see you at 8",
			payloadID:     "m1",
			MetaUserName:  "Alice Smith",
			MetaTimestamp: "2024-05-01T10:00:00Z",
		}),
	}

	h := hitFromPoint(p)
	assert.Equal(t, "m1", h.ID)
	assert.Equal(t, "see you at 8", h.Text)
	assert.InDelta(t, 0.25, h.Distance, 1e-6)
	assert.Equal(t, "Alice Smith", h.Metadata[MetaUserName])
	assert.NotContains(t, h.Metadata, payloadText)
}

func TestRetryOperation(t *testing.T) {
	s := &QdrantStore{
		config: QdrantConfig{MaxRetries: 2, RetryBackoff: time.Millisecond, CircuitBreakerThreshold: 10},
		logger: zap.NewNop(),
	}

	t.Run("transient then success", func(t *testing.T) {
		calls := 0
		err := s.retryOperation(context.Background(), "op", func() error {
			calls++
			if calls < 2 {
				return status.Error(grpccodes.Unavailable, "down")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("permanent fails fast", func(t *testing.T) {
		calls := 0
		err := s.retryOperation(context.Background(), "op", func() error {
			calls++
			return status.Error(grpccodes.InvalidArgument, "bad")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := s.retryOperation(context.Background(), "op", func() error {
			calls++
			return status.Error(grpccodes.Unavailable, "down")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})
}

// TestQdrantStore_Integration runs against a live Qdrant when QDRANT_HOST is set.
func TestQdrantStore_Integration(t *testing.T) {
	host := os.Getenv("QDRANT_HOST")
	if host == "" || testing.Short() {
		t.Skip("QDRANT_HOST not set")
	}
	port := 6334
	if p, err := strconv.Atoi(os.Getenv("QDRANT_PORT")); err == nil {
		port = p
	}

	ctx := context.Background()
	store, err := NewQdrantStore(ctx, QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: "memberqa_test",
		VectorSize: 4,
	}, nil)
	require.NoError(t, err)
	defer store.Close()

	var _ Truncater = store
	require.NoError(t, store.Truncate(ctx))

	require.NoError(t, store.Add(ctx, []Entry{
		{ID: "m1", Text: "one", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]string{MetaUserName: "A", MetaDomain: DomainMessage}},
		{ID: "m2", Text: "two", Embedding: []float32{0, 1, 0, 0}, Metadata: map[string]string{MetaUserName: "B", MetaDomain: DomainMessage}},
	}))

	hits, err := store.Query(ctx, []float32{1, 0, 0, 0}, 5, UserFilter("A"))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "m1", hits[0].ID)
	assert.Len(t, hits[0].Embedding, 4)

	require.NoError(t, store.Truncate(ctx))
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
