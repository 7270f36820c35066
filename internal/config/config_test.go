package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.Equal(t, 64, cfg.Index.BatchSize)
	assert.Equal(t, 70.0, cfg.Retrieval.FuzzyThreshold)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Zero(t, cfg.Retrieval.Limit, "zero limit means top_k")
	assert.Equal(t, 3, cfg.Retrieval.CandidateMultiplier)
	assert.Equal(t, 12, cfg.Retrieval.CentroidWindow)
	assert.Equal(t, "user", cfg.Retrieval.ExpansionScope)
	assert.Equal(t, 100, cfg.Ingest.PageSize)
	assert.Equal(t, 0.2, cfg.Answer.Temperature)
	assert.Equal(t, 24*time.Hour, cfg.Ingest.CacheTTL.Duration())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"no shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{"telemetry without service name", func(c *Config) {
			c.Observability.EnableTelemetry = true
			c.Observability.ServiceName = ""
		}},
		{"unknown otlp protocol", func(c *Config) { c.Observability.Protocol = "thrift" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"unknown vectorstore", func(c *Config) { c.VectorStore.Provider = "pinecone" }},
		{"chromem without path", func(c *Config) { c.VectorStore.Chromem.Path = "" }},
		{"qdrant without host", func(c *Config) {
			c.VectorStore.Provider = "qdrant"
			c.VectorStore.Qdrant.Host = ""
		}},
		{"unknown embeddings provider", func(c *Config) { c.Embeddings.Provider = "word2vec" }},
		{"tei without url", func(c *Config) {
			c.Embeddings.Provider = "tei"
			c.Embeddings.BaseURL = ""
		}},
		{"zero batch size", func(c *Config) { c.Index.BatchSize = 0 }},
		{"threshold below range", func(c *Config) { c.Retrieval.FuzzyThreshold = -1 }},
		{"threshold above range", func(c *Config) { c.Retrieval.FuzzyThreshold = 101 }},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"negative limit", func(c *Config) { c.Retrieval.Limit = -1 }},
		{"unknown expansion scope", func(c *Config) { c.Retrieval.ExpansionScope = "team" }},
		{"no ingest url", func(c *Config) { c.Ingest.BaseURL = "" }},
		{"zero page size", func(c *Config) { c.Ingest.PageSize = 0 }},
		{"negative rate limit", func(c *Config) { c.Ingest.RateLimit = -1 }},
		{"temperature too high", func(c *Config) { c.Answer.Temperature = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfig_ValidateAcceptsEdges(t *testing.T) {
	cfg := Default()
	cfg.Retrieval.FuzzyThreshold = 0
	cfg.VectorStore.Chromem.Path = ""
	cfg.VectorStore.Chromem.InMemory = true
	cfg.Retrieval.ExpansionScope = "global"
	assert.NoError(t, cfg.Validate())

	cfg.Retrieval.FuzzyThreshold = 100
	assert.NoError(t, cfg.Validate())
}
