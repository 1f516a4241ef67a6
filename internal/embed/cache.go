package embed

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/ppiankov/factrank/internal/logging"
)

// CachedEmbedder memoizes vectors by exact text
type CachedEmbedder struct {
	next   Embedder
	cache  *lru.Cache[string, []float32]
	logger *zap.Logger
}

// NewCachedEmbedder wraps next with an LRU cache holding size vectors
func NewCachedEmbedder(next Embedder, size int, logger *zap.Logger) (*CachedEmbedder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}
	return &CachedEmbedder{
		next:   next,
		cache:  cache,
		logger: logging.OrNop(logger),
	}, nil
}

// Embed implements Embedder. Only cache misses reach the wrapped embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		vecs, err := c.next.Embed(ctx, missing)
		if err != nil {
			return nil, err
		}
		for j, v := range vecs {
			out[missingIdx[j]] = v
			c.cache.Add(missing[j], v)
		}
	}

	c.logger.Debug("embedded texts",
		zap.Int("total", len(texts)),
		zap.Int("cache_misses", len(missing)),
	)
	return out, nil
}
