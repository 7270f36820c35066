package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyEntries indicates empty or nil entries.
	ErrEmptyEntries = errors.New("empty or nil entries")

	// ErrInvalidEntry indicates an entry without ID or embedding, or with
	// an embedding of the wrong dimension.
	ErrInvalidEntry = errors.New("invalid entry")

	// ErrInvalidQuery indicates a query with an empty vector or non-positive k.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidFilter indicates a filter with an empty key or value.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to Qdrant")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

// Store is the interface for vector storage operations.
//
// Implementations are safe for concurrent use. Entries are never patched in
// place; callers rebuild by clearing and re-adding.
type Store interface {
	// Add stores entries with their precomputed embeddings.
	Add(ctx context.Context, entries []Entry) error

	// Query returns up to k entries nearest to vector, ordered by ascending
	// cosine distance. A non-empty filter restricts results to entries whose
	// metadata equals every filter pair. Fewer than k hits are returned when
	// fewer entries match; an empty store yields no hits and no error.
	Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Hit, error)

	// DeleteWhere removes every entry whose metadata matches filter.
	// An empty filter is rejected.
	DeleteWhere(ctx context.Context, filter map[string]string) error

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// Truncater is implemented by stores that can delete every entry at once.
type Truncater interface {
	Truncate(ctx context.Context) error
}
