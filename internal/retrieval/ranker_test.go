package retrieval_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/retrieval"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/timestamp"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/vectorstore"
)

const dim = 4

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

type queryCall struct {
	k      int
	filter map[string]string
}

// searcher serves queries from a real in-memory chromem store and records
// every call.
type searcher struct {
	store    vectorstore.Store
	queryVec []float32

	encodeErr error
	queryErr  error
	failAt    int

	mu    sync.Mutex
	texts []string
	calls []queryCall
}

func (s *searcher) Encode(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	if s.encodeErr != nil {
		return nil, s.encodeErr
	}
	return s.queryVec, nil
}

func (s *searcher) Query(ctx context.Context, vec []float32, k int, filter map[string]string) ([]vectorstore.Hit, error) {
	s.mu.Lock()
	s.calls = append(s.calls, queryCall{k: k, filter: filter})
	n := len(s.calls)
	s.mu.Unlock()
	if s.queryErr != nil && (s.failAt == 0 || s.failAt == n) {
		return nil, s.queryErr
	}
	return s.store.Query(ctx, vec, k, filter)
}

type msg struct {
	id, user, text, ts string
	vec                []float32
}

func newSearcher(t *testing.T, msgs ...msg) *searcher {
	t.Helper()
	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Collection: "ranker_test",
		VectorSize: dim,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	if len(msgs) > 0 {
		entries := make([]vectorstore.Entry, len(msgs))
		for i, m := range msgs {
			entries[i] = vectorstore.Entry{
				ID:        m.id,
				Text:      m.text,
				Embedding: m.vec,
				Metadata: map[string]string{
					vectorstore.MetaUserName:  m.user,
					vectorstore.MetaUserID:    "uid-" + m.user,
					vectorstore.MetaTimestamp: m.ts,
					vectorstore.MetaDomain:    vectorstore.DomainMessage,
				},
			}
		}
		require.NoError(t, store.Add(context.Background(), entries))
	}
	return &searcher{store: store, queryVec: unit(1, 0, 0, 0)}
}

func newRanker(t *testing.T, s retrieval.Searcher, cfg retrieval.Config) *retrieval.Ranker {
	t.Helper()
	r, err := retrieval.New(s, cfg, nil)
	require.NoError(t, err)
	return r
}

// mixedCorpus has 3 Alice Smith messages and 10 from others.
func mixedCorpus() []msg {
	msgs := []msg{
		{"a1", "Alice Smith", "Budget looks fine for Q3", "2024-03-01T09:00:00Z", unit(1, 0.1, 0, 0)},
		{"a2", "Alice Smith", "We should cut the travel budget", "2024-06-15T12:30:00Z", unit(1, 0.3, 0, 0)},
		{"a3", "Alice Smith", "Book me a table in Paris", "2024-01-20T18:00:00Z", unit(0, 1, 0.2, 0)},
	}
	for i := range 10 {
		msgs = append(msgs, msg{
			id:   fmt.Sprintf("b%d", i),
			user: "Bob Lee",
			text: fmt.Sprintf("Bob note %d", i),
			ts:   fmt.Sprintf("2024-07-%02dT08:00:00Z", i+1),
			vec:  unit(1, float32(i)/10, 0.5, 0),
		})
	}
	return msgs
}

func assertOrdered(t *testing.T, out []retrieval.Message) {
	t.Helper()
	for i := 1; i < len(out); i++ {
		prev, cur := out[i-1], out[i]
		require.False(t, cur.Timestamp.After(prev.Timestamp), "timestamps must be non-increasing at %d", i)
		if cur.Timestamp.Equal(prev.Timestamp) {
			require.LessOrEqual(t, prev.Distance, cur.Distance, "distance tie-break at %d", i)
		}
	}
}

func TestRetrieve_DetectedUserScenario(t *testing.T) {
	s := newSearcher(t, mixedCorpus()...)
	r := newRanker(t, s, retrieval.Config{})

	out, err := r.Retrieve(context.Background(), retrieval.Request{
		Question: "What did Alice last say about the budget?",
		User:     "Alice Smith",
		TopK:     5,
	})
	require.NoError(t, err)

	require.NotEmpty(t, out)
	assert.LessOrEqual(t, len(out), 5)
	for _, m := range out {
		assert.Equal(t, "Alice Smith", m.UserName)
		assert.Equal(t, "uid-Alice Smith", m.UserID)
	}
	assert.Equal(t, "We should cut the travel budget", out[0].Text)
	assertOrdered(t, out)

	require.Len(t, s.texts, 1)
	assert.Equal(t, "Alice Smith: What did Alice last say about the budget?", s.texts[0])

	require.Len(t, s.calls, 2, "primary then expansion")
	assert.Equal(t, 15, s.calls[0].k)
	assert.Equal(t, vectorstore.UserFilter("Alice Smith"), s.calls[0].filter)
	assert.Equal(t, 5, s.calls[1].k)
	assert.Equal(t, vectorstore.UserFilter("Alice Smith"), s.calls[1].filter)
}

func TestRetrieve_NoUserSearchesEveryone(t *testing.T) {
	s := newSearcher(t, mixedCorpus()...)
	r := newRanker(t, s, retrieval.Config{TopK: 5})

	out, err := r.Retrieve(context.Background(), retrieval.Request{Question: "any news?"})
	require.NoError(t, err)

	assert.Len(t, out, 5)
	assert.Equal(t, "any news?", s.texts[0])
	assert.Nil(t, s.calls[0].filter)

	users := map[string]bool{}
	for _, m := range out {
		users[m.UserName] = true
	}
	assert.True(t, users["Bob Lee"])
	assertOrdered(t, out)
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	s := newSearcher(t)
	r := newRanker(t, s, retrieval.Config{})

	out, err := r.Retrieve(context.Background(), retrieval.Request{Question: "hello", User: "Alice Smith"})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Len(t, s.calls, 2, "primary and unfiltered fallback, no expansion")
}

func TestRetrieve_FallbackForUnindexedUser(t *testing.T) {
	s := newSearcher(t, mixedCorpus()...)
	r := newRanker(t, s, retrieval.Config{TopK: 3})

	out, err := r.Retrieve(context.Background(), retrieval.Request{Question: "plans?", User: "Carol King"})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(s.calls), 2)
	assert.Equal(t, vectorstore.UserFilter("Carol King"), s.calls[0].filter)
	assert.Nil(t, s.calls[1].filter)

	// Other members' messages never leak through under a detected user.
	assert.Empty(t, out)
}

func TestRetrieve_GlobalExpansionIsPostFiltered(t *testing.T) {
	s := newSearcher(t, mixedCorpus()...)
	r := newRanker(t, s, retrieval.Config{ExpansionScope: retrieval.ScopeGlobal})

	out, err := r.Retrieve(context.Background(), retrieval.Request{Question: "budget", User: "Alice Smith"})
	require.NoError(t, err)

	require.Len(t, s.calls, 2)
	assert.Nil(t, s.calls[1].filter)
	require.NotEmpty(t, out)
	for _, m := range out {
		assert.Equal(t, "Alice Smith", m.UserName)
	}
}

func TestRetrieve_DeduplicatesByText(t *testing.T) {
	s := newSearcher(t,
		msg{"1", "Alice Smith", "same words", "2024-01-01T00:00:00Z", unit(1, 0, 0, 0)},
		msg{"2", "Alice Smith", "same words", "2024-02-01T00:00:00Z", unit(1, 0.5, 0, 0)},
		msg{"3", "Alice Smith", "other words", "2024-01-15T00:00:00Z", unit(1, 0.2, 0, 0)},
	)
	r := newRanker(t, s, retrieval.Config{TopK: 5})

	out, err := r.Retrieve(context.Background(), retrieval.Request{Question: "q"})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, m := range out {
		assert.False(t, seen[m.Text], "duplicate text %q", m.Text)
		seen[m.Text] = true
	}
	require.Len(t, out, 2)

	// First occurrence (the closer primary hit) wins.
	for _, m := range out {
		if m.Text == "same words" {
			assert.Equal(t, "1", m.ID)
		}
	}
}

func TestRetrieve_TimestampTiesBrokenByDistance(t *testing.T) {
	ts := "2024-04-04T04:04:04Z"
	s := newSearcher(t,
		msg{"far", "Alice Smith", "far", ts, unit(1, 1, 0, 0)},
		msg{"near", "Alice Smith", "near", ts, unit(1, 0.05, 0, 0)},
		msg{"mid", "Alice Smith", "mid", ts, unit(1, 0.4, 0, 0)},
		msg{"old", "Alice Smith", "old", "2020-01-01", unit(1, 0, 0, 0)},
		msg{"nots", "Alice Smith", "no timestamp", "", unit(1, 0, 0.01, 0)},
		msg{"bad", "Alice Smith", "bad timestamp", "yesterday-ish", unit(1, 0, 0.02, 0)},
	)
	r := newRanker(t, s, retrieval.Config{TopK: 10})

	out, err := r.Retrieve(context.Background(), retrieval.Request{Question: "q", User: "Alice Smith"})
	require.NoError(t, err)
	require.Len(t, out, 6)

	var ids []string
	for _, m := range out {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"near", "mid", "far", "old"}, ids[:4])
	assert.True(t, timestamp.IsMin(out[4].Timestamp))
	assert.True(t, timestamp.IsMin(out[5].Timestamp))
	assertOrdered(t, out)
}

func TestRetrieve_Limit(t *testing.T) {
	s := newSearcher(t, mixedCorpus()...)

	r := newRanker(t, s, retrieval.Config{TopK: 5, Limit: 2})
	out, err := r.Retrieve(context.Background(), retrieval.Request{Question: "q"})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = r.Retrieve(context.Background(), retrieval.Request{Question: "q", Limit: 7})
	require.NoError(t, err)
	assert.Len(t, out, 7)
}

func TestRetrieve_SingleHitSkipsExpansion(t *testing.T) {
	s := newSearcher(t, msg{"1", "Alice Smith", "only one", "2024-01-01T00:00:00Z", unit(1, 0, 0, 0)})
	r := newRanker(t, s, retrieval.Config{})

	out, err := r.Retrieve(context.Background(), retrieval.Request{Question: "q", User: "Alice Smith"})
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Len(t, s.calls, 1)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(out[0].Timestamp))
}

func TestRetrieve_PropagatesFailures(t *testing.T) {
	boom := errors.New("store unavailable")

	tests := []struct {
		name   string
		setup  func(*searcher)
		wantIn string
	}{
		{"encode", func(s *searcher) { s.encodeErr = boom }, "store unavailable"},
		{"primary", func(s *searcher) { s.queryErr = boom; s.failAt = 1 }, "primary query"},
		{"expansion", func(s *searcher) { s.queryErr = boom; s.failAt = 2 }, "expansion query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSearcher(t, mixedCorpus()...)
			tt.setup(s)
			r := newRanker(t, s, retrieval.Config{})

			out, err := r.Retrieve(context.Background(), retrieval.Request{Question: "q"})
			require.Error(t, err)
			assert.ErrorIs(t, err, retrieval.ErrRetrieval)
			assert.ErrorIs(t, err, boom)
			assert.Contains(t, err.Error(), tt.wantIn)
			assert.Nil(t, out)
		})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := retrieval.New(nil, retrieval.Config{}, nil)
	assert.Error(t, err)

	_, err = retrieval.New(&searcher{}, retrieval.Config{ExpansionScope: "planet"}, nil)
	assert.Error(t, err)
}
