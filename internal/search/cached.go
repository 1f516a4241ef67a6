package search

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/factrank/internal/cache"
	"github.com/ppiankov/factrank/internal/logging"
	"github.com/ppiankov/factrank/internal/model"
)

// CachedProvider serves repeated queries from a cache. Errors and empty
// result sets are never cached.
type CachedProvider struct {
	inner  Provider
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProvider wraps p with c
func NewCachedProvider(p Provider, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	return &CachedProvider{inner: p, cache: c, ttl: ttl, logger: logging.OrNop(logger)}
}

func (c *CachedProvider) Name() string { return c.inner.Name() }

func (c *CachedProvider) Search(ctx context.Context, query string, n int) ([]model.SearchResult, error) {
	key := cache.CacheKey("search", c.inner.Name(), query, strconv.Itoa(n))

	var cached []model.SearchResult
	if cache.GetJSON(c.cache, key, &cached) {
		c.logger.Debug("search cache hit", zap.String("provider", c.inner.Name()), zap.String("query", query))
		return cached, nil
	}

	results, err := c.inner.Search(ctx, query, n)
	if err != nil || len(results) == 0 {
		return results, err
	}
	if err := cache.SetJSON(c.cache, key, results, c.ttl); err != nil {
		c.logger.Warn("search cache write failed", zap.String("provider", c.inner.Name()), zap.Error(err))
	}
	return results, nil
}
