// Package embed provides text embeddings for semantic similarity and the
// similarity functions the retriever ranks with.
package embed

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/factrank/internal/model"
)

// Embedder turns texts into vectors, one per input in input order
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// New creates the embedder selected by cfg.Provider, wrapped in an LRU
// cache when cfg.CacheSize > 0. An empty provider disables embeddings
// and returns nil.
func New(cfg model.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var base Embedder
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "":
		return nil, nil
	case "openai", "ollama":
		base, err = NewOpenAIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("%w: embedding provider %q (supported: openai, ollama)", model.ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize <= 0 {
		return base, nil
	}
	return NewCachedEmbedder(base, cfg.CacheSize, logger)
}
