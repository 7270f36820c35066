package answer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/answer"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/retrieval"
)

// fakeModel records the prompt and call options it receives.
type fakeModel struct {
	reply  string
	err    error
	calls  int
	prompt string
	opts   llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, msgs []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	for _, o := range options {
		o(&f.opts)
	}
	if len(msgs) > 0 && len(msgs[0].Parts) > 0 {
		if tc, ok := msgs[0].Parts[0].(llms.TextContent); ok {
			f.prompt = tc.Text
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func context3() []retrieval.Message {
	ts := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	return []retrieval.Message{
		{Text: "Please book a table at Nobu on Friday", UserName: "Layla Kawaguchi", Timestamp: ts, Distance: 0.2},
		{Text: "I prefer window seats", UserName: "Layla Kawaguchi", Timestamp: ts.Add(-time.Hour), Distance: 0.4},
		{Text: "My car is a Tesla Model S", UserName: "Layla Kawaguchi", Timestamp: ts.Add(-2 * time.Hour), Distance: 0.5},
	}
}

func TestGenerate_NoContextSkipsModel(t *testing.T) {
	m := &fakeModel{reply: "should not be used"}
	g := answer.NewWithModel(m, answer.Config{}, nil)

	res, err := g.Generate(context.Background(), "Where is Layla going?", nil)
	require.NoError(t, err)
	assert.Equal(t, answer.NoContextAnswer, res.Answer)
	assert.Equal(t, answer.ConfidenceNone, res.Confidence)
	assert.Zero(t, m.calls)
}

func TestGenerate_PromptAndOptions(t *testing.T) {
	m := &fakeModel{reply: "  Layla wants a table at Nobu on Friday.\n"}
	g := answer.NewWithModel(m, answer.Config{MaxTokens: 256}, nil)

	res, err := g.Generate(context.Background(), "Where does Layla want to eat?", context3())
	require.NoError(t, err)

	assert.Equal(t, "Layla wants a table at Nobu on Friday.", res.Answer)
	assert.Equal(t, answer.ConfidenceHigh, res.Confidence)

	assert.InDelta(t, answer.DefaultTemperature, m.opts.Temperature, 1e-9)
	assert.Equal(t, 256, m.opts.MaxTokens)

	assert.Contains(t, m.prompt, "Layla Kawaguchi: Please book a table at Nobu on Friday\nLayla Kawaguchi: I prefer window seats")
	assert.Contains(t, m.prompt, "Question:\nWhere does Layla want to eat?")
	assert.Contains(t, m.prompt, answer.InsufficientAnswer)
	assert.True(t, strings.HasSuffix(m.prompt, "Answer:"))
}

func TestGenerate_ModelFailureIsDistinct(t *testing.T) {
	boom := errors.New("429 too many requests")
	g := answer.NewWithModel(&fakeModel{err: boom}, answer.Config{}, nil)

	res, err := g.Generate(context.Background(), "q", context3())
	require.Error(t, err)
	assert.ErrorIs(t, err, answer.ErrGeneration)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, res.Answer)
}

func TestGenerate_EmptyCompletion(t *testing.T) {
	g := answer.NewWithModel(&fakeModel{reply: "   "}, answer.Config{}, nil)

	_, err := g.Generate(context.Background(), "q", context3())
	assert.ErrorIs(t, err, answer.ErrGeneration)
}

func TestGenerate_Confidence(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		msgs  []retrieval.Message
		want  string
	}{
		{"close and plenty", "yes", context3(), answer.ConfidenceHigh},
		{"close but thin", "yes", context3()[:1], answer.ConfidenceMedium},
		{"moderate", "yes", []retrieval.Message{{Text: "a", Distance: 0.55}, {Text: "b", Distance: 0.7}}, answer.ConfidenceMedium},
		{"distant", "yes", []retrieval.Message{{Text: "a", Distance: 0.8}}, answer.ConfidenceLow},
		{"model declined", answer.InsufficientAnswer, context3(), answer.ConfidenceLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := answer.NewWithModel(&fakeModel{reply: tt.reply}, answer.Config{}, nil)
			res, err := g.Generate(context.Background(), "q", tt.msgs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Confidence)
		})
	}
}

func TestNew_OpenAICompatibleEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		assert.InDelta(t, 0.2, body.Temperature, 1e-9)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Friday at Nobu."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14}
		}`))
	}))
	defer srv.Close()

	g, err := answer.New(answer.Config{
		BaseURL:     srv.URL + "/v1",
		APIKey:      "test-key",
		Temperature: 0.2,
		Timeout:     5 * time.Second,
	}, nil)
	require.NoError(t, err)

	res, err := g.Generate(context.Background(), "When is the dinner?", context3())
	require.NoError(t, err)
	assert.Equal(t, "Friday at Nobu.", res.Answer)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := answer.New(answer.Config{}, nil)
	assert.Error(t, err)
}
