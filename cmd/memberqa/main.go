// Memberqa answers natural-language questions about members from their
// messages.
//
// The daemon loads messages from the member API (cached in SQLite), indexes
// them in a vector store and serves the question answering HTTP API.
//
// Configuration is read from ~/.config/memberqa/config.yaml and environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start the server with defaults
//	memberqa
//
//	# Configure via environment
//	SERVER_HTTP_PORT=9000 VECTORSTORE_PROVIDER=qdrant ANSWER_API_KEY=sk-... memberqa serve
package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/answer"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/config"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/detect"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/embeddings"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/http"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/index"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/logging"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/messages"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/qa"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/retrieval"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/telemetry"
	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "memberqa",
	Short: "Member question answering daemon",
	Long: `memberqa answers questions about members from the messages they sent.

Running memberqa without a subcommand is the same as "memberqa serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API. Messages are loaded and indexed in the background;
/health reports "starting" until the first load completes.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("memberqa\n")
		cmd.Printf("Version:    %s\n", version)
		cmd.Printf("Commit:     %s\n", gitCommit)
		cmd.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/memberqa/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	return run(ctx, cfg)
}

// run wires every component and blocks until ctx is cancelled.
//
// Start-up order:
//  1. Logger and telemetry
//  2. Embedding provider and vector store
//  3. Index, detector, ranker and answer generator
//  4. Message client, SQLite cache and loader
//  5. HTTP server, with the first refresh running in the background
func run(ctx context.Context, cfg *config.Config) error {
	logCfg, err := logging.FromAppConfig(cfg.Logging, cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, global.GetLoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()
	zl := logger.Underlying()

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Observability, version), zl)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			zl.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	logger.Info(ctx, "starting memberqa",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("vectorstore", cfg.VectorStore.Provider),
		zap.String("embeddings", cfg.Embeddings.Provider))

	deps, err := initDependencies(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer deps.Close()

	svc, err := qa.New(qa.Deps{
		Loader:    deps.loader,
		Index:     deps.index,
		Detector:  detect.New(cfg.Retrieval.FuzzyThreshold, zl),
		Retriever: deps.ranker,
		Answerer:  deps.generator,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create qa service: %w", err)
	}

	srv, err := http.NewServer(svc, logger, &http.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout.Duration(),
		Version:        version,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	go func() {
		stats, err := svc.Refresh(ctx, false)
		if err != nil {
			logger.Error(ctx, "initial refresh failed, POST /api/v1/reindex to retry", zap.Error(err))
			return
		}
		logger.Info(ctx, "ready",
			zap.Int("messages", stats.Messages),
			zap.Int("members", stats.Members),
			zap.Bool("rebuilt", stats.Rebuilt),
			zap.Duration("duration", stats.Duration))
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info(shutdownCtx, "server shutdown complete")
	return nil
}

// dependencies holds the components that own resources.
type dependencies struct {
	index     *index.Service
	ranker    *retrieval.Ranker
	generator *answer.Generator
	cache     *messages.Cache
	loader    *messages.Loader
	logger    *zap.Logger
}

// Close releases all resources. The index owns the store and the embedder.
func (d *dependencies) Close() {
	if d.index != nil {
		if err := d.index.Close(); err != nil {
			d.logger.Warn("closing index failed", zap.Error(err))
		}
	}
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			d.logger.Warn("closing message cache failed", zap.Error(err))
		}
	}
}

// initDependencies builds the retrieval pipeline and the message source.
func initDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	d := &dependencies{logger: logger}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	embedder, err := embeddings.NewProvider(ctx, embeddings.ProviderConfig{
		Provider:       cfg.Embeddings.Provider,
		Model:          cfg.Embeddings.Model,
		BaseURL:        cfg.Embeddings.BaseURL,
		APIKey:         cfg.Embeddings.APIKey.Value(),
		Timeout:        cfg.Embeddings.Timeout.Duration(),
		CacheDir:       cfg.Embeddings.CacheDir,
		MaxLength:      cfg.Embeddings.MaxLength,
		InstallRuntime: cfg.Embeddings.InstallRuntime,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	logger.Info("embedding provider initialized",
		zap.String("provider", cfg.Embeddings.Provider),
		zap.String("model", cfg.Embeddings.Model),
		zap.Int("dimension", embedder.Dimension()))

	store, err := vectorstore.NewStore(ctx, cfg.VectorStore, embedder.Dimension(), logger)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}

	d.index, err = index.New(store, embedder, index.Config{BatchSize: cfg.Index.BatchSize}, logger)
	if err != nil {
		_ = store.Close()
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	d.ranker, err = retrieval.New(d.index, retrieval.Config{
		TopK:                cfg.Retrieval.TopK,
		Limit:               cfg.Retrieval.Limit,
		CandidateMultiplier: cfg.Retrieval.CandidateMultiplier,
		CentroidWindow:      cfg.Retrieval.CentroidWindow,
		ExpansionScope:      cfg.Retrieval.ExpansionScope,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create ranker: %w", err)
	}

	apiKey := cfg.Answer.APIKey.Value()
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	d.generator, err = answer.New(answer.Config{
		Model:       cfg.Answer.Model,
		BaseURL:     cfg.Answer.BaseURL,
		APIKey:      apiKey,
		Temperature: cfg.Answer.Temperature,
		MaxTokens:   cfg.Answer.MaxTokens,
		Timeout:     cfg.Answer.Timeout.Duration(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create answer generator: %w", err)
	}

	client, err := messages.NewClient(messages.ClientConfig{
		BaseURL:   cfg.Ingest.BaseURL,
		APIKey:    cfg.Ingest.APIKey.Value(),
		PageSize:  cfg.Ingest.PageSize,
		MaxPages:  cfg.Ingest.MaxPages,
		RateLimit: cfg.Ingest.RateLimit,
		Timeout:   cfg.Ingest.Timeout.Duration(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create message client: %w", err)
	}

	d.cache, err = messages.OpenCache(cfg.Ingest.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open message cache: %w", err)
	}
	d.loader = messages.NewLoader(client, d.cache, cfg.Ingest.CacheTTL.Duration(), logger)

	logger.Info("dependencies initialized",
		zap.String("vectorstore", cfg.VectorStore.Provider),
		zap.String("message_cache", d.cache.Path()),
		zap.String("answer_model", cfg.Answer.Model))

	ok = true
	return d, nil
}
