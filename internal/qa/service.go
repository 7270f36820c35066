// Package qa answers questions about members.
//
// A Service owns the known member names and runs the full pipeline for a
// question: member detection, retrieval and answer generation. Refresh
// reloads the message set and brings the vector index in line with it.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/answer"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/detect"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/logging"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/messages"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/retrieval"
)

// maxQuestionLen bounds the question accepted by Ask, in bytes.
const maxQuestionLen = 2000

var (
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question is required")

	// ErrQuestionTooLong is returned for a question over maxQuestionLen.
	ErrQuestionTooLong = errors.New("question is too long")

	// ErrNotReady is returned by Ask before the first successful Refresh.
	ErrNotReady = errors.New("service is not ready")
)

// Loader produces the full message set.
type Loader interface {
	Load(ctx context.Context, force bool) ([]messages.Record, error)
}

// Indexer keeps the vector index in line with a message set.
type Indexer interface {
	Sync(ctx context.Context, records []messages.Record) (bool, error)
}

// Retriever ranks messages for a question.
type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) ([]retrieval.Message, error)
}

// Answerer turns a question and its messages into an answer.
type Answerer interface {
	Generate(ctx context.Context, question string, msgs []retrieval.Message) (answer.Result, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Loader    Loader
	Index     Indexer
	Detector  *detect.Detector
	Retriever Retriever
	Answerer  Answerer
}

// Answer is the response to one question.
type Answer struct {
	Question     string              `json:"question"`
	DetectedUser string              `json:"detected_user,omitempty"`
	DetectTier   string              `json:"detect_tier"`
	Answer       string              `json:"answer"`
	Confidence   string              `json:"confidence"`
	Context      []retrieval.Message `json:"context"`
}

// RefreshStats describes a completed refresh.
type RefreshStats struct {
	Messages int           `json:"messages"`
	Members  int           `json:"members"`
	Rebuilt  bool          `json:"rebuilt"`
	Duration time.Duration `json:"duration"`
}

// Status is a point-in-time view of the service.
type Status struct {
	Ready       bool      `json:"ready"`
	Members     int       `json:"members"`
	Messages    int       `json:"messages"`
	LastRefresh time.Time `json:"last_refresh,omitempty"`
}

// Service runs the question answering pipeline.
type Service struct {
	deps   Deps
	logger *logging.Logger

	refreshMu sync.Mutex

	mu          sync.RWMutex
	names       []string
	messages    int
	lastRefresh time.Time
}

// New creates a Service. Every dependency is required.
func New(deps Deps, logger *logging.Logger) (*Service, error) {
	switch {
	case deps.Loader == nil:
		return nil, errors.New("message loader is required")
	case deps.Index == nil:
		return nil, errors.New("index is required")
	case deps.Detector == nil:
		return nil, errors.New("detector is required")
	case deps.Retriever == nil:
		return nil, errors.New("retriever is required")
	case deps.Answerer == nil:
		return nil, errors.New("answerer is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{deps: deps, logger: logger}, nil
}

// Refresh loads messages, syncs the index and updates the known members.
// Concurrent refreshes are serialized; questions keep being answered from
// the previous member list until the new one is in place.
func (s *Service) Refresh(ctx context.Context, force bool) (RefreshStats, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	records, err := s.deps.Loader.Load(ctx, force)
	if err != nil {
		return RefreshStats{}, fmt.Errorf("loading messages: %w", err)
	}

	rebuilt, err := s.deps.Index.Sync(ctx, records)
	if err != nil {
		return RefreshStats{}, fmt.Errorf("syncing index: %w", err)
	}

	names := messages.Names(records)

	s.mu.Lock()
	s.names = names
	s.messages = len(records)
	s.lastRefresh = time.Now()
	s.mu.Unlock()

	stats := RefreshStats{
		Messages: len(records),
		Members:  len(names),
		Rebuilt:  rebuilt,
		Duration: time.Since(start),
	}
	s.logger.Info(ctx, "refresh complete",
		zap.Int("messages", stats.Messages),
		zap.Int("members", stats.Members),
		zap.Bool("rebuilt", stats.Rebuilt),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// Ask answers question.
//
// Retrieval and generation failures are returned wrapped in
// retrieval.ErrRetrieval and answer.ErrGeneration respectively, so callers
// can tell them apart from an answer with no supporting messages.
func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}
	if len(question) > maxQuestionLen {
		return Answer{}, ErrQuestionTooLong
	}

	s.mu.RLock()
	names, ready := s.names, !s.lastRefresh.IsZero()
	s.mu.RUnlock()
	if !ready {
		return Answer{}, ErrNotReady
	}

	det := s.deps.Detector.DetectResult(question, names)
	if det.Found() {
		ctx = logging.WithMember(ctx, det.Name)
	}
	s.logger.Debug(ctx, "member detection",
		zap.String("tier", det.Tier),
		zap.Float64("score", det.Score),
	)

	msgs, err := s.deps.Retriever.Retrieve(ctx, retrieval.Request{
		Question: question,
		User:     det.Name,
	})
	if err != nil {
		s.logger.Error(ctx, "retrieval failed", zap.Error(err))
		return Answer{}, err
	}

	res, err := s.deps.Answerer.Generate(ctx, question, msgs)
	if err != nil {
		s.logger.Error(ctx, "answer generation failed", zap.Error(err))
		return Answer{}, err
	}

	s.logger.Info(ctx, "question answered",
		zap.Int("context", len(msgs)),
		zap.String("confidence", res.Confidence),
	)
	return Answer{
		Question:     question,
		DetectedUser: det.Name,
		DetectTier:   det.Tier,
		Answer:       res.Answer,
		Confidence:   res.Confidence,
		Context:      msgs,
	}, nil
}

// Members returns a copy of the known member names, sorted.
func (s *Service) Members() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.names...)
}

// Status reports readiness and sizes.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Ready:       !s.lastRefresh.IsZero(),
		Members:     len(s.names),
		Messages:    s.messages,
		LastRefresh: s.lastRefresh,
	}
}
