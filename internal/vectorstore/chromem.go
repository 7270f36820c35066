package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("memberqa.vectorstore.chromem")

// errNoEmbeddingFunc is returned if chromem ever tries to embed text itself.
// Every entry and query carries a precomputed vector.
var errNoEmbeddingFunc = errors.New("chromem: embeddings must be precomputed")

// ChromemConfig holds configuration for chromem-go embedded vector database.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	// Empty keeps the database in memory only.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// Collection is the collection holding message entries.
	// Default: "member_messages"
	Collection string

	// VectorSize is the expected embedding dimension.
	// Must match the embedder's output dimension.
	// Default: 384 (all-MiniLM-L6-v2)
	VectorSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "member_messages"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 384
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return ValidateCollectionName(c.Collection)
}

// ChromemStore implements Store using chromem-go.
//
// chromem-go keeps documents in memory and optionally persists them to gob
// files. It has no native delete-all, so ChromemStore deliberately does not
// implement Truncater; callers clear it with DeleteWhere(DomainFilter()).
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	config     ChromemConfig
	logger     *zap.Logger
}

// NewChromemStore creates a new ChromemStore with the given configuration.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	var (
		db  *chromem.DB
		err error
	)
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		expandedPath, err := expandChromemPath(config.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(expandedPath, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", expandedPath, err)
		}
		db, err = openChromemDB(expandedPath, config.Compress, logger)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
		config.Path = expandedPath
	}

	collection, err := db.GetOrCreateCollection(config.Collection, nil, rejectEmbedding)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", config.Collection, err)
	}

	logger.Info("ChromemStore initialized",
		zap.String("path", config.Path),
		zap.Bool("persistent", config.Path != ""),
		zap.Bool("compress", config.Compress),
		zap.Int("vector_size", config.VectorSize),
		zap.String("collection", config.Collection),
		zap.Int("entries", collection.Count()),
	)

	return &ChromemStore{
		db:         db,
		collection: collection,
		config:     config,
		logger:     logger,
	}, nil
}

func rejectEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// expandChromemPath expands ~ to home directory.
func expandChromemPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Add stores entries with their precomputed embeddings.
func (s *ChromemStore) Add(ctx context.Context, entries []Entry) (err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Add")
	defer span.End()
	defer observeOperation("chromem", "add", time.Now(), &err)

	span.SetAttributes(attribute.Int("entry_count", len(entries)))

	if err := validateEntries(entries, s.config.VectorSize); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:        e.ID,
			Metadata:  copyMetadata(e.Metadata),
			Embedding: e.Embedding,
			Content:   e.Text,
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents to %s: %w", s.config.Collection, err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Query returns up to k entries nearest to vector.
func (s *ChromemStore) Query(ctx context.Context, vector []float32, k int, filter map[string]string) (hits []Hit, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Query")
	defer span.End()
	defer observeOperation("chromem", "query", time.Now(), &err)

	span.SetAttributes(
		attribute.Int("k", k),
		attribute.Int("filter_keys", len(filter)),
	)

	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrInvalidQuery)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidQuery, k)
	}
	if err := ValidateFilter(filter); err != nil {
		return nil, err
	}

	// chromem requires nResults <= doc count; filtering may return fewer.
	docCount := s.collection.Count()
	if docCount == 0 {
		return []Hit{}, nil
	}
	if k > docCount {
		k = docCount
	}

	var where map[string]string
	if len(filter) > 0 {
		where = filter
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, k, where, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.config.Collection, err)
	}

	hits = make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			ID:        r.ID,
			Text:      r.Content,
			Metadata:  copyMetadata(r.Metadata),
			Distance:  1 - r.Similarity,
			Embedding: r.Embedding,
		}
	}

	span.SetAttributes(attribute.Int("results_count", len(hits)))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("queried chromem collection",
		zap.String("collection", s.config.Collection),
		zap.Int("k", k),
		zap.Int("results", len(hits)),
	)

	return hits, nil
}

// DeleteWhere removes every entry whose metadata matches filter.
func (s *ChromemStore) DeleteWhere(ctx context.Context, filter map[string]string) (err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.DeleteWhere")
	defer span.End()
	defer observeOperation("chromem", "delete", time.Now(), &err)

	if len(filter) == 0 {
		return fmt.Errorf("%w: delete requires a filter", ErrInvalidFilter)
	}
	if err := ValidateFilter(filter); err != nil {
		return err
	}

	before := s.collection.Count()
	if err := s.collection.Delete(ctx, filter, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting from collection %s: %w", s.config.Collection, err)
	}

	s.logger.Debug("deleted chromem entries",
		zap.String("collection", s.config.Collection),
		zap.Int("deleted", before-s.collection.Count()),
	)
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Count returns the number of stored entries.
func (s *ChromemStore) Count(_ context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Close is a no-op: persistent chromem databases write through on every change.
func (s *ChromemStore) Close() error {
	return nil
}
