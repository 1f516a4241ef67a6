// Package search queries web search engines and normalizes their hits
// into model.SearchResult values.
package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/factrank/internal/cache"
	"github.com/ppiankov/factrank/internal/logging"
	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/util"
	"github.com/ppiankov/factrank/internal/worker"
)

// DefaultMaxResults is used when a caller asks for zero results
const DefaultMaxResults = 8

// Provider is a web search backend
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, n int) ([]model.SearchResult, error)
}

// Options carries the shared plumbing every provider needs
type Options struct {
	HTTP     model.HTTPConfig
	Client   *http.Client    // nil builds one from HTTP
	Limiter  *worker.Limiter // nil disables rate limiting
	Cache    cache.Cache     // nil disables result caching
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// New builds the providers named in cfg, in order. An empty list returns no
// providers. Unknown names and missing credentials are errors so that a
// misconfigured deployment fails at startup.
func New(cfg model.SearchConfig, opts Options) ([]Provider, error) {
	logger := logging.OrNop(opts.Logger)
	client := opts.Client
	if client == nil {
		client = util.NewHTTPClient(opts.HTTP)
	}
	base := &requester{
		client:    client,
		limiter:   opts.Limiter,
		userAgent: opts.HTTP.UserAgent,
		maxBytes:  opts.HTTP.MaxBodyBytes,
	}

	var providers []Provider
	seen := make(map[string]bool)
	for _, raw := range cfg.Providers {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		p, err := newProvider(name, cfg, base)
		if err != nil {
			return nil, err
		}
		if opts.Cache != nil {
			p = NewCachedProvider(p, opts.Cache, opts.CacheTTL, logger)
		}
		logger.Debug("search provider enabled", zap.String("provider", name))
		providers = append(providers, p)
	}
	return providers, nil
}

func newProvider(name string, cfg model.SearchConfig, r *requester) (Provider, error) {
	switch name {
	case "duckduckgo", "ddg":
		return NewDuckDuckGo(r), nil
	case "tavily":
		if cfg.TavilyAPIKey == "" {
			return nil, fmt.Errorf("%w: tavily requires an API key (TAVILY_API_KEY)", model.ErrInvalidConfig)
		}
		return NewTavily(r, cfg.TavilyAPIKey), nil
	case "serpapi":
		if cfg.SerpAPIKey == "" {
			return nil, fmt.Errorf("%w: serpapi requires an API key (SERPAPI_KEY)", model.ErrInvalidConfig)
		}
		return NewSerpAPI(r, cfg.SerpAPIKey), nil
	case "google":
		if cfg.GoogleAPIKey == "" || cfg.GoogleCSEID == "" {
			return nil, fmt.Errorf("%w: google requires GOOGLE_API_KEY and GOOGLE_CSE_ID", model.ErrInvalidConfig)
		}
		return NewGoogle(r, cfg.GoogleAPIKey, cfg.GoogleCSEID), nil
	default:
		return nil, fmt.Errorf("%w: search provider %q (supported: duckduckgo, tavily, serpapi, google)", model.ErrUnknownProvider, name)
	}
}

func resultLimit(n int) int {
	if n <= 0 {
		return DefaultMaxResults
	}
	return n
}
