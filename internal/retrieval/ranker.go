// Package retrieval selects and orders the messages that support an answer.
//
// A retrieval embeds the question (prefixed with the detected member when
// there is one), searches the index, widens the result with a query on the
// centroid of the top hits, then deduplicates and orders the merged set
// newest first.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/embeddings"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/timestamp"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/vectorstore"
)

var tracer = otel.Tracer("github.com/ManiKran/Aurora-Q-A-Assessment/internal/retrieval")

// Expansion scopes.
const (
	// ScopeUser restricts centroid expansion to the detected member.
	ScopeUser = "user"
	// ScopeGlobal lets centroid expansion search every member.
	ScopeGlobal = "global"
)

// Defaults used when a Config field is zero.
const (
	DefaultTopK                = 5
	DefaultCandidateMultiplier = 3
	DefaultCentroidWindow      = 12
)

// ErrRetrieval wraps every embedding or index failure seen during retrieval.
// It is distinct from an empty, successful result.
var ErrRetrieval = errors.New("retrieval failed")

// Searcher is the vector index as seen by the ranker.
type Searcher interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]vectorstore.Hit, error)
}

// Config tunes the ranker.
type Config struct {
	// TopK is the default number of nearest neighbours per query.
	TopK int
	// Limit is the default output cap; 0 means TopK.
	Limit int
	// CandidateMultiplier scales TopK for the primary query.
	CandidateMultiplier int
	// CentroidWindow is the number of leading hits averaged into the centroid.
	CentroidWindow int
	// ExpansionScope is ScopeUser or ScopeGlobal.
	ExpansionScope string
}

// Request is a single retrieval.
type Request struct {
	Question string
	// User is the detected member name; empty searches every member.
	User string
	// TopK overrides Config.TopK when positive.
	TopK int
	// Limit overrides Config.Limit when positive.
	Limit int
}

// Message is one ranked result.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	UserName  string    `json:"user_name"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Distance  float32   `json:"distance"`
}

// Ranker implements the retrieval policy over a Searcher.
// It holds no mutable state and is safe for concurrent use.
type Ranker struct {
	searcher Searcher
	cfg      Config
	logger   *zap.Logger
}

// New creates a Ranker. Zero Config fields take their defaults.
func New(searcher Searcher, cfg Config, logger *zap.Logger) (*Ranker, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.CandidateMultiplier <= 0 {
		cfg.CandidateMultiplier = DefaultCandidateMultiplier
	}
	if cfg.CentroidWindow <= 0 {
		cfg.CentroidWindow = DefaultCentroidWindow
	}
	switch cfg.ExpansionScope {
	case "":
		cfg.ExpansionScope = ScopeUser
	case ScopeUser, ScopeGlobal:
	default:
		return nil, fmt.Errorf("unknown expansion scope %q", cfg.ExpansionScope)
	}
	if cfg.Limit < 0 {
		cfg.Limit = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{searcher: searcher, cfg: cfg, logger: logger}, nil
}

// Retrieve returns the ordered, deduplicated messages supporting req.
//
// The result is sorted newest first, ties broken by ascending distance.
// When req.User is set every returned message belongs to that member.
// An empty index yields an empty slice and no error.
func (r *Ranker) Retrieve(ctx context.Context, req Request) (out []Message, err error) {
	ctx, span := tracer.Start(ctx, "retrieval.Retrieve")
	defer span.End()

	topK := r.cfg.TopK
	if req.TopK > 0 {
		topK = req.TopK
	}
	limit := r.cfg.Limit
	if req.Limit > 0 {
		limit = req.Limit
	}
	if limit == 0 {
		limit = topK
	}

	span.SetAttributes(
		attribute.Int("top_k", topK),
		attribute.Int("limit", limit),
		attribute.Bool("user_filtered", req.User != ""),
	)

	start := time.Now()
	defer func() {
		observeRetrieval(start, len(out), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	queryText := req.Question
	var filter map[string]string
	if req.User != "" {
		queryText = req.User + ": " + req.Question
		filter = vectorstore.UserFilter(req.User)
	}

	vec, err := r.searcher.Encode(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	hits, err := r.searcher.Query(ctx, vec, topK*r.cfg.CandidateMultiplier, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: primary query: %w", ErrRetrieval, err)
	}

	if len(hits) == 0 && filter != nil {
		fallbacksTotal.Inc()
		r.logger.Debug("no hits for member, retrying unfiltered", zap.String("user", req.User))
		hits, err = r.searcher.Query(ctx, vec, topK*r.cfg.CandidateMultiplier, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: fallback query: %w", ErrRetrieval, err)
		}
	}

	if len(hits) > 1 {
		expanded, err := r.expand(ctx, hits, topK, filter)
		if err != nil {
			return nil, err
		}
		hits = append(hits, expanded...)
	}

	out = rank(hits, req.User, limit)
	span.SetAttributes(attribute.Int("results", len(out)))
	r.logger.Debug("retrieval complete",
		zap.Int("candidates", len(hits)),
		zap.Int("results", len(out)),
	)
	return out, nil
}

// expand queries around the centroid of the leading hits.
func (r *Ranker) expand(ctx context.Context, hits []vectorstore.Hit, topK int, filter map[string]string) ([]vectorstore.Hit, error) {
	window := min(len(hits), r.cfg.CentroidWindow)
	vecs := make([][]float32, 0, window)
	for _, h := range hits[:window] {
		vecs = append(vecs, h.Embedding)
	}

	centroid := embeddings.Mean(vecs)
	if centroid == nil {
		r.logger.Debug("hits carry no embeddings, skipping expansion")
		return nil, nil
	}
	embeddings.Normalize(centroid)

	if r.cfg.ExpansionScope == ScopeGlobal {
		filter = nil
	}

	expanded, err := r.searcher.Query(ctx, centroid, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: expansion query: %w", ErrRetrieval, err)
	}
	expansionsTotal.Inc()
	return expanded, nil
}

// rank assembles, deduplicates, orders, filters and truncates hits.
// hits must be in provenance order; the first occurrence of a text wins.
func rank(hits []vectorstore.Hit, user string, limit int) []Message {
	seen := make(map[string]struct{}, len(hits))
	out := make([]Message, 0, len(hits))
	for _, h := range hits {
		if _, dup := seen[h.Text]; dup {
			continue
		}
		seen[h.Text] = struct{}{}
		out = append(out, Message{
			ID:        h.ID,
			Text:      h.Text,
			UserName:  h.Metadata[vectorstore.MetaUserName],
			UserID:    h.Metadata[vectorstore.MetaUserID],
			Timestamp: timestamp.Parse(h.Metadata[vectorstore.MetaTimestamp]),
			Distance:  h.Distance,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Distance < out[j].Distance
	})

	if user != "" {
		kept := out[:0]
		for _, m := range out {
			if m.UserName == user {
				kept = append(kept, m)
			}
		}
		out = kept
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
