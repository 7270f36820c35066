package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTEIServer fakes the TEI /embed endpoint, returning a vector of dim
// values per input where the first component is the input length.
func newTEIServer(t *testing.T, dim int, status int) (*httptest.Server, *[]teiRequest) {
	t.Helper()
	var seen []teiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req teiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		seen = append(seen, req)

		if status != http.StatusOK {
			http.Error(w, "model overloaded", status)
			return
		}

		var inputs []string
		switch v := req.Inputs.(type) {
		case string:
			inputs = []string{v}
		case []interface{}:
			for _, in := range v {
				inputs = append(inputs, in.(string))
			}
		}

		out := make([][]float32, len(inputs))
		for i, in := range inputs {
			vec := make([]float32, dim)
			vec[0] = float32(len(in))
			out[i] = vec
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name       string
		config     Config
		wantErr    bool
		errMessage string
	}{
		{
			name:   "valid TEI configuration",
			config: Config{BaseURL: "http://localhost:8080", Model: "BAAI/bge-small-en-v1.5"},
		},
		{
			name:   "with API key and timeout",
			config: Config{BaseURL: "https://tei.internal", APIKey: "secret", Timeout: 5 * time.Second},
		},
		{
			name:       "empty base URL",
			config:     Config{Model: "test"},
			wantErr:    true,
			errMessage: "base URL required",
		},
		{
			name:       "negative timeout",
			config:     Config{BaseURL: "http://localhost:8080", Timeout: -time.Second},
			wantErr:    true,
			errMessage: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewService(tt.config, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConfig))
				assert.Contains(t, err.Error(), tt.errMessage)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, service)
		})
	}
}

func TestService_EmbedDocuments(t *testing.T) {
	srv, seen := newTEIServer(t, 4, http.StatusOK)
	svc, err := NewService(Config{BaseURL: srv.URL, Model: "test-model"}, nil)
	require.NoError(t, err)

	vectors, err := svc.EmbedDocuments(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(3), vectors[1][0])

	require.Len(t, *seen, 1)
	assert.True(t, (*seen)[0].Truncate)
}

func TestService_EmbedQuery(t *testing.T) {
	srv, _ := newTEIServer(t, 4, http.StatusOK)
	svc, err := NewService(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	vec, err := svc.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, float32(5), vec[0])
}

func TestService_EmptyInput(t *testing.T) {
	svc, err := NewService(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = svc.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestService_ServerError(t *testing.T) {
	srv, _ := newTEIServer(t, 4, http.StatusServiceUnavailable)
	svc, err := NewService(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "503")
}

func TestService_SendsBearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([][]float32{{1, 2}})
	}))
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL, APIKey: "tok"}, nil)
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", auth)
}

func TestService_ContextCancellation(t *testing.T) {
	srv, _ := newTEIServer(t, 4, http.StatusOK)
	svc, err := NewService(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.EmbedDocuments(ctx, []string{"test"})
	assert.Error(t, err)
}

func TestService_VectorCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([][]float32{{1, 2}})
	}))
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}
