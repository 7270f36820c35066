// Package index builds and queries the vector index of member messages.
//
// A Service owns the index lifecycle. Builds clear the store and repopulate
// it from a full message set; they are serialized against each other and
// against queries with a read/write lock, so a query never observes a
// half-built index.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/embeddings"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/messages"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/vectorstore"
)

var tracer = otel.Tracer("github.com/ManiKran/Aurora-Q-A-Assessment/internal/index")

// DefaultBatchSize bounds how many texts are embedded per provider call.
const DefaultBatchSize = 64

var (
	// ErrBuildInProgress is returned when a build is requested while another
	// build is running.
	ErrBuildInProgress = errors.New("index build already in progress")

	// ErrEmptyQuery indicates an empty query text or vector.
	ErrEmptyQuery = errors.New("empty query")
)

// Config configures a Service.
type Config struct {
	// BatchSize is the number of texts embedded and inserted per batch.
	BatchSize int
}

// BuildStats summarizes a completed build.
type BuildStats struct {
	Entries  int
	Batches  int
	Cleared  bool
	Duration time.Duration
}

// Service wraps an embedding provider and a vector store.
type Service struct {
	store    vectorstore.Store
	embedder embeddings.Provider
	cfg      Config
	logger   *zap.Logger

	mu          sync.RWMutex
	building    atomic.Bool
	fingerprint string
}

// New creates a Service. A nil logger disables logging.
func New(store vectorstore.Store, embedder embeddings.Provider, cfg Config, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("vector store is required")
	}
	if embedder == nil {
		return nil, errors.New("embedding provider is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Build clears the index and inserts one entry per record.
//
// A failure to clear is logged and the build continues; entries that
// survive a failed clear stay queryable. Only one build runs at a time:
// a concurrent call returns ErrBuildInProgress.
func (s *Service) Build(ctx context.Context, records []messages.Record) (stats BuildStats, err error) {
	if !s.building.CompareAndSwap(false, true) {
		return BuildStats{}, ErrBuildInProgress
	}
	defer s.building.Store(false)

	ctx, span := tracer.Start(ctx, "index.Build")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(records)))

	start := time.Now()
	defer func() {
		observeBuild(start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	// The fingerprint only describes a fully successful build.
	s.fingerprint = ""

	stats.Cleared = s.clear(ctx)

	for lo := 0; lo < len(records); lo += s.cfg.BatchSize {
		hi := min(lo+s.cfg.BatchSize, len(records))
		if err := s.addBatch(ctx, records[lo:hi]); err != nil {
			return stats, fmt.Errorf("indexing batch %d-%d: %w", lo, hi, err)
		}
		stats.Entries += hi - lo
		stats.Batches++
	}

	stats.Duration = time.Since(start)
	s.fingerprint = Fingerprint(records)
	indexedEntries.Set(float64(stats.Entries))

	s.logger.Info("index built",
		zap.Int("entries", stats.Entries),
		zap.Int("batches", stats.Batches),
		zap.Bool("cleared", stats.Cleared),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// Sync rebuilds the index only when records differ from the last successful
// build or the store's entry count no longer matches. It reports whether a
// build ran.
func (s *Service) Sync(ctx context.Context, records []messages.Record) (bool, error) {
	fp := Fingerprint(records)

	s.mu.RLock()
	current := s.fingerprint
	s.mu.RUnlock()

	if current == fp {
		n, err := s.Count(ctx)
		if err == nil && n == len(records) {
			s.logger.Debug("index up to date", zap.Int("entries", n))
			return false, nil
		}
	}

	if _, err := s.Build(ctx, records); err != nil {
		return false, err
	}
	return true, nil
}

// Encode embeds a query text and normalizes it.
func (s *Service) Encode(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyQuery
	}
	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	return embeddings.Normalize(vec), nil
}

// Query returns up to k entries nearest to vector, optionally restricted by
// a metadata equality filter.
func (s *Service) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]vectorstore.Hit, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyQuery
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Query(ctx, vector, k, filter)
}

// Count returns the number of indexed entries.
func (s *Service) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Count(ctx)
}

// Close releases the store and the embedding provider.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.store.Close(), s.embedder.Close())
}

// clear removes existing entries. It prefers a true truncate and falls back
// to deleting every entry of the message domain.
func (s *Service) clear(ctx context.Context) bool {
	n, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Warn("counting entries before rebuild failed, continuing", zap.Error(err))
		clearFailures.Inc()
		return false
	}
	if n == 0 {
		return true
	}

	if t, ok := s.store.(vectorstore.Truncater); ok {
		err = t.Truncate(ctx)
	} else {
		err = s.store.DeleteWhere(ctx, vectorstore.DomainFilter())
	}
	if err != nil {
		s.logger.Warn("clearing index failed, stale entries may remain",
			zap.Int("entries", n),
			zap.Error(err),
		)
		clearFailures.Inc()
		return false
	}
	return true
}

func (s *Service) addBatch(ctx context.Context, batch []messages.Record) error {
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.Text
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedding: got %d vectors for %d texts", len(vectors), len(batch))
	}
	embeddings.NormalizeAll(vectors)

	entries := make([]vectorstore.Entry, len(batch))
	for i, r := range batch {
		entries[i] = vectorstore.Entry{
			ID:        r.ID,
			Text:      r.Text,
			Embedding: vectors[i],
			Metadata: map[string]string{
				vectorstore.MetaUserName:  r.UserName,
				vectorstore.MetaUserID:    r.UserID,
				vectorstore.MetaTimestamp: r.Timestamp,
				vectorstore.MetaDomain:    vectorstore.DomainMessage,
			},
		}
	}
	return s.store.Add(ctx, entries)
}

// Fingerprint hashes the identity and content of records in order.
func Fingerprint(records []messages.Record) string {
	h := sha256.New()
	for _, r := range records {
		for _, f := range [...]string{r.ID, r.UserID, r.UserName, r.Text, r.Timestamp} {
			h.Write([]byte(f))
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
