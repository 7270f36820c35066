// Package config provides configuration loading for memberqa.
//
// Values come from three layers: built-in defaults (Default), an optional
// YAML file and environment variables. See LoadWithFile for precedence.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the complete memberqa configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	Logging       LoggingConfig       `koanf:"logging"`
	VectorStore   VectorStoreConfig   `koanf:"vectorstore"`
	Embeddings    EmbeddingsConfig    `koanf:"embeddings"`
	Index         IndexConfig         `koanf:"index"`
	Retrieval     RetrievalConfig     `koanf:"retrieval"`
	Ingest        IngestConfig        `koanf:"ingest"`
	Answer        AnswerConfig        `koanf:"answer"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"http_host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	RequestTimeout  Duration `koanf:"request_timeout"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	Endpoint        string `koanf:"endpoint"`
	Protocol        string `koanf:"protocol"` // grpc or http/protobuf
	Insecure        bool   `koanf:"insecure"`
	TLSSkipVerify   bool   `koanf:"tls_skip_verify"`
}

// LoggingConfig holds the subset of logging options exposed to operators.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
	OTEL   bool   `koanf:"otel"`
}

// VectorStoreConfig selects and configures the vector store engine.
type VectorStoreConfig struct {
	Provider string        `koanf:"provider"` // chromem or qdrant
	Chromem  ChromemConfig `koanf:"chromem"`
	Qdrant   QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	Compress   bool   `koanf:"compress"`
	Collection string `koanf:"collection"`
}

// QdrantConfig configures the external Qdrant store.
type QdrantConfig struct {
	Host         string   `koanf:"host"`
	Port         int      `koanf:"port"`
	Collection   string   `koanf:"collection"`
	APIKey       Secret   `koanf:"api_key"`
	UseTLS       bool     `koanf:"use_tls"`
	MaxRetries   int      `koanf:"max_retries"`
	RetryBackoff Duration `koanf:"retry_backoff"`
}

// EmbeddingsConfig configures the sentence encoder.
type EmbeddingsConfig struct {
	Provider       string   `koanf:"provider"` // fastembed or tei
	Model          string   `koanf:"model"`
	BaseURL        string   `koanf:"base_url"`
	APIKey         Secret   `koanf:"api_key"`
	Timeout        Duration `koanf:"timeout"`
	CacheDir       string   `koanf:"cache_dir"`
	MaxLength      int      `koanf:"max_length"`
	InstallRuntime bool     `koanf:"install_runtime"`
}

// IndexConfig configures index builds.
type IndexConfig struct {
	BatchSize int `koanf:"batch_size"`
}

// RetrievalConfig configures member detection and ranking.
type RetrievalConfig struct {
	FuzzyThreshold      float64 `koanf:"fuzzy_threshold"`
	TopK                int     `koanf:"top_k"`
	Limit               int     `koanf:"limit"`
	CandidateMultiplier int     `koanf:"candidate_multiplier"`
	CentroidWindow      int     `koanf:"centroid_window"`
	ExpansionScope      string  `koanf:"expansion_scope"` // user or global
}

// IngestConfig configures the message source and its local cache.
type IngestConfig struct {
	BaseURL   string   `koanf:"base_url"`
	APIKey    Secret   `koanf:"api_key"`
	PageSize  int      `koanf:"page_size"`
	MaxPages  int      `koanf:"max_pages"`
	RateLimit float64  `koanf:"rate_limit"` // requests per second, 0 disables
	Timeout   Duration `koanf:"timeout"`
	CachePath string   `koanf:"cache_path"`
	CacheTTL  Duration `koanf:"cache_ttl"`
}

// AnswerConfig configures the answer generator.
type AnswerConfig struct {
	Model       string   `koanf:"model"`
	BaseURL     string   `koanf:"base_url"`
	APIKey      Secret   `koanf:"api_key"`
	Temperature float64  `koanf:"temperature"`
	MaxTokens   int      `koanf:"max_tokens"`
	Timeout     Duration `koanf:"timeout"`
}

// Default returns the built-in configuration. Loaded values are decoded on
// top of it, so any key absent from the file and the environment keeps its
// default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: Duration(10 * time.Second),
			RequestTimeout:  Duration(60 * time.Second),
		},
		Observability: ObservabilityConfig{
			EnableTelemetry: false,
			ServiceName:     "memberqa",
			Endpoint:        "localhost:4317",
			Protocol:        "grpc",
			Insecure:        true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		VectorStore: VectorStoreConfig{
			Provider: "chromem",
			Chromem: ChromemConfig{
				Path:       "~/.local/share/memberqa/vectorstore",
				Compress:   true,
				Collection: "member_messages",
			},
			Qdrant: QdrantConfig{
				Host:         "localhost",
				Port:         6334,
				Collection:   "member_messages",
				MaxRetries:   3,
				RetryBackoff: Duration(time.Second),
			},
		},
		Embeddings: EmbeddingsConfig{
			Provider: "fastembed",
			Model:    "sentence-transformers/all-MiniLM-L6-v2",
			BaseURL:  "http://localhost:8080",
			Timeout:  Duration(30 * time.Second),
		},
		Index: IndexConfig{
			BatchSize: 64,
		},
		Retrieval: RetrievalConfig{
			FuzzyThreshold:      70,
			TopK:                5,
			CandidateMultiplier: 3,
			CentroidWindow:      12,
			ExpansionScope:      "user",
		},
		Ingest: IngestConfig{
			BaseURL:   "https://november7-730026606190.europe-west1.run.app/messages",
			PageSize:  100,
			RateLimit: 5,
			Timeout:   Duration(30 * time.Second),
			CachePath: "~/.local/share/memberqa/messages.db",
			CacheTTL:  Duration(24 * time.Hour),
		},
		Answer: AnswerConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   512,
			Timeout:     Duration(60 * time.Second),
		},
	}
}

// Validate checks the configuration for values the services cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d (must be 1-65535)", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalidConfig)
	}
	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return fmt.Errorf("%w: service name required when telemetry is enabled", ErrInvalidConfig)
	}
	switch c.Observability.Protocol {
	case "", "grpc", "http/protobuf":
	default:
		return fmt.Errorf("%w: observability protocol %q (supported: grpc, http/protobuf)", ErrInvalidConfig, c.Observability.Protocol)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("%w: logging format %q (supported: json, console)", ErrInvalidConfig, c.Logging.Format)
	}

	switch c.VectorStore.Provider {
	case "chromem":
		if !c.VectorStore.Chromem.InMemory && c.VectorStore.Chromem.Path == "" {
			return fmt.Errorf("%w: vectorstore.chromem.path required unless in_memory is set", ErrInvalidConfig)
		}
	case "qdrant":
		if c.VectorStore.Qdrant.Host == "" {
			return fmt.Errorf("%w: vectorstore.qdrant.host is required", ErrInvalidConfig)
		}
		if c.VectorStore.Qdrant.Port < 1 || c.VectorStore.Qdrant.Port > 65535 {
			return fmt.Errorf("%w: qdrant port %d (must be 1-65535)", ErrInvalidConfig, c.VectorStore.Qdrant.Port)
		}
	default:
		return fmt.Errorf("%w: vectorstore provider %q (supported: chromem, qdrant)", ErrInvalidConfig, c.VectorStore.Provider)
	}

	switch c.Embeddings.Provider {
	case "fastembed":
	case "tei":
		if c.Embeddings.BaseURL == "" {
			return fmt.Errorf("%w: embeddings.base_url required for tei", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: embeddings provider %q (supported: fastembed, tei)", ErrInvalidConfig, c.Embeddings.Provider)
	}

	if c.Index.BatchSize <= 0 {
		return fmt.Errorf("%w: index.batch_size must be positive", ErrInvalidConfig)
	}

	r := c.Retrieval
	if r.FuzzyThreshold < 0 || r.FuzzyThreshold > 100 {
		return fmt.Errorf("%w: retrieval.fuzzy_threshold %.1f (must be 0-100)", ErrInvalidConfig, r.FuzzyThreshold)
	}
	if r.TopK <= 0 || r.CandidateMultiplier <= 0 || r.CentroidWindow <= 0 {
		return fmt.Errorf("%w: retrieval top_k, candidate_multiplier and centroid_window must be positive", ErrInvalidConfig)
	}
	if r.Limit < 0 {
		return fmt.Errorf("%w: retrieval.limit cannot be negative", ErrInvalidConfig)
	}
	if r.ExpansionScope != "user" && r.ExpansionScope != "global" {
		return fmt.Errorf("%w: retrieval.expansion_scope %q (supported: user, global)", ErrInvalidConfig, r.ExpansionScope)
	}

	if c.Ingest.BaseURL == "" {
		return fmt.Errorf("%w: ingest.base_url is required", ErrInvalidConfig)
	}
	if c.Ingest.PageSize <= 0 {
		return fmt.Errorf("%w: ingest.page_size must be positive", ErrInvalidConfig)
	}
	if c.Ingest.RateLimit < 0 {
		return fmt.Errorf("%w: ingest.rate_limit cannot be negative", ErrInvalidConfig)
	}

	if c.Answer.Temperature < 0 || c.Answer.Temperature > 2 {
		return fmt.Errorf("%w: answer.temperature %.2f (must be 0-2)", ErrInvalidConfig, c.Answer.Temperature)
	}

	return nil
}
