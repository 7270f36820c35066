package vectorstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ManiKran/Aurora-Q-A-Assessment/internal/config"
)

// NewStore creates a Store based on the configuration.
//
// The VectorStoreConfig.Provider field selects the implementation:
//   - "chromem" (default): embedded ChromemStore (no external deps)
//   - "qdrant": QdrantStore (requires an external Qdrant server)
//
// vectorSize must match the embedding provider's dimension.
func NewStore(ctx context.Context, cfg config.VectorStoreConfig, vectorSize int, logger *zap.Logger) (Store, error) {
	if vectorSize <= 0 {
		return nil, fmt.Errorf("%w: vector size must be positive, got %d", ErrInvalidConfig, vectorSize)
	}

	switch cfg.Provider {
	case "chromem", "":
		path := cfg.Chromem.Path
		if cfg.Chromem.InMemory {
			path = ""
		}
		return NewChromemStore(ChromemConfig{
			Path:       path,
			Compress:   cfg.Chromem.Compress,
			Collection: cfg.Chromem.Collection,
			VectorSize: vectorSize,
		}, logger)

	case "qdrant":
		return NewQdrantStore(ctx, QdrantConfig{
			Host:         cfg.Qdrant.Host,
			Port:         cfg.Qdrant.Port,
			Collection:   cfg.Qdrant.Collection,
			VectorSize:   uint64(vectorSize),
			APIKey:       cfg.Qdrant.APIKey.Value(),
			UseTLS:       cfg.Qdrant.UseTLS,
			MaxRetries:   cfg.Qdrant.MaxRetries,
			RetryBackoff: cfg.Qdrant.RetryBackoff.Duration(),
		}, logger)

	default:
		return nil, fmt.Errorf("%w: unsupported vectorstore provider %q (supported: chromem, qdrant)", ErrInvalidConfig, cfg.Provider)
	}
}
