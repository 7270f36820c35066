// Package answer turns a question and its retrieved messages into a grounded
// natural-language answer using a chat model.
package answer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/retrieval"
)

var tracer = otel.Tracer("github.com/ManiKran/Aurora-Q-A-Assessment/internal/answer")

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultTemperature keeps answers close to the context.
	DefaultTemperature = 0.2

	// NoContextAnswer is returned, without calling the model, when retrieval
	// found nothing.
	NoContextAnswer = "I couldn’t find any relevant messages to answer that question."

	// InsufficientAnswer is the reply the model is told to give when the
	// context does not contain the answer.
	InsufficientAnswer = "I don’t have enough information to answer that."
)

// Confidence tiers.
const (
	ConfidenceNone   = "none"
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Distance cut-offs for the confidence tiers.
const (
	highDistance   = 0.35
	mediumDistance = 0.6
	highMinContext = 3
)

// ErrGeneration wraps every chat model failure.
var ErrGeneration = errors.New("answer generation failed")

const promptTemplate = `You are a helpful assistant that answers questions about members based only on the context below.
Each message is written by a member. Messages are listed newest first.

Context:
%s

Question:
%s

If the answer cannot be found in the context, reply with:
"%s"

Answer:`

// Config configures a Generator.
type Config struct {
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Result is a generated answer.
type Result struct {
	Answer     string `json:"answer"`
	Confidence string `json:"confidence"`
}

// Generator produces answers with a langchaingo chat model.
type Generator struct {
	llm         llms.Model
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// New creates a Generator backed by an OpenAI-compatible endpoint.
func New(cfg Config, logger *zap.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("answer API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating chat model: %w", err)
	}
	return NewWithModel(llm, cfg, logger), nil
}

// NewWithModel creates a Generator around an existing langchaingo model.
func NewWithModel(llm llms.Model, cfg Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	return &Generator{
		llm:         llm,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Generate answers question from msgs, which must be ordered newest first.
//
// With no messages it returns NoContextAnswer and ConfidenceNone without
// calling the model. Model failures are returned wrapped in ErrGeneration,
// never as a textual answer.
func (g *Generator) Generate(ctx context.Context, question string, msgs []retrieval.Message) (Result, error) {
	if len(msgs) == 0 {
		generationsTotal.WithLabelValues("no_context").Inc()
		return Result{Answer: NoContextAnswer, Confidence: ConfidenceNone}, nil
	}

	ctx, span := tracer.Start(ctx, "answer.Generate")
	defer span.End()
	span.SetAttributes(attribute.Int("context_messages", len(msgs)))

	opts := []llms.CallOption{llms.WithTemperature(g.temperature)}
	if g.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.maxTokens))
	}

	start := time.Now()
	text, err := llms.GenerateFromSinglePrompt(ctx, g.llm, BuildPrompt(question, msgs), opts...)
	generationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		generationsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error("chat model call failed", zap.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		generationsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("%w: empty completion", ErrGeneration)
	}

	generationsTotal.WithLabelValues("success").Inc()
	return Result{Answer: text, Confidence: confidence(text, msgs)}, nil
}

// BuildPrompt renders the grounded prompt, one "<member>: <text>" line per
// message in the given order.
func BuildPrompt(question string, msgs []retrieval.Message) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = m.UserName + ": " + m.Text
	}
	return fmt.Sprintf(promptTemplate, strings.Join(lines, "\n"), question, InsufficientAnswer)
}

// confidence grades an answer by how much context backed it and how close
// the best message was.
func confidence(text string, msgs []retrieval.Message) string {
	if strings.Contains(text, InsufficientAnswer) {
		return ConfidenceLow
	}
	best := msgs[0].Distance
	for _, m := range msgs[1:] {
		best = min(best, m.Distance)
	}
	switch {
	case best <= highDistance && len(msgs) >= highMinContext:
		return ConfidenceHigh
	case best <= mediumDistance:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
