package messages

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Fetcher retrieves the full message set from the source.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]Record, error)
}

// Loader serves messages from the cache while it is fresh and refetches
// otherwise.
type Loader struct {
	fetcher Fetcher
	cache   *Cache
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewLoader creates a Loader. A ttl of 0 keeps the cache fresh forever;
// only a forced load refetches.
func NewLoader(fetcher Fetcher, cache *Cache, ttl time.Duration, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Load returns the message set in source order.
//
// Unless force is set, a fresh cache is served without contacting the
// source. When a fetch fails and a stale cache exists, the stale set is
// returned with a warning.
func (l *Loader) Load(ctx context.Context, force bool) ([]Record, error) {
	cached, fetchedAt, cacheErr := l.cache.Load(ctx)
	if cacheErr != nil && !errors.Is(cacheErr, ErrCacheEmpty) {
		l.logger.Warn("reading message cache failed", zap.Error(cacheErr))
	}
	haveCache := cacheErr == nil

	if haveCache && !force && l.fresh(fetchedAt) {
		loadsTotal.WithLabelValues("cache").Inc()
		l.logger.Info("loaded messages from cache",
			zap.Int("count", len(cached)),
			zap.Time("fetched_at", fetchedAt),
		)
		return cached, nil
	}

	records, err := l.fetcher.FetchAll(ctx)
	if err != nil {
		if haveCache {
			loadsTotal.WithLabelValues("stale").Inc()
			l.logger.Warn("fetch failed, serving stale cache",
				zap.Int("count", len(cached)),
				zap.Time("fetched_at", fetchedAt),
				zap.Error(err),
			)
			return cached, nil
		}
		loadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := l.cache.Store(ctx, records, l.now()); err != nil {
		l.logger.Warn("caching messages failed", zap.Error(err))
	}
	loadsTotal.WithLabelValues("source").Inc()
	l.logger.Info("loaded messages from source", zap.Int("count", len(records)))
	return records, nil
}

func (l *Loader) fresh(fetchedAt time.Time) bool {
	if l.ttl <= 0 {
		return true
	}
	return l.now().Sub(fetchedAt) < l.ttl
}
