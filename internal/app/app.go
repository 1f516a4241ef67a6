// Package app assembles every factrank component from a model.Config.
package app

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ppiankov/factrank/internal/cache"
	"github.com/ppiankov/factrank/internal/dedup"
	"github.com/ppiankov/factrank/internal/embed"
	"github.com/ppiankov/factrank/internal/ingest"
	"github.com/ppiankov/factrank/internal/llm"
	"github.com/ppiankov/factrank/internal/logging"
	"github.com/ppiankov/factrank/internal/metrics"
	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/pipeline"
	"github.com/ppiankov/factrank/internal/query"
	"github.com/ppiankov/factrank/internal/reputation"
	"github.com/ppiankov/factrank/internal/rerank"
	"github.com/ppiankov/factrank/internal/score"
	"github.com/ppiankov/factrank/internal/search"
	"github.com/ppiankov/factrank/internal/server"
	"github.com/ppiankov/factrank/internal/store"
	"github.com/ppiankov/factrank/internal/util"
	"github.com/ppiankov/factrank/internal/worker"
)

// Available records which optional collaborators were constructed
type Available struct {
	WebSearch bool
	Generator bool
	RealLLM   bool // a generator other than the offline mock
	Embedder  bool
	Reranker  bool
}

// ResolveCapabilities combines config switches with what could be built.
// LLM expansion needs a real model; the mock would only echo boilerplate.
func ResolveCapabilities(cfg model.Config, av Available) model.Capabilities {
	return model.Capabilities{
		WebSearch:        av.WebSearch,
		Embeddings:       av.Embedder,
		CrossEncoder:     av.Reranker,
		Lexical:          cfg.Retrieval.Lexical,
		ApproximateDedup: cfg.Dedup.Approximate && cfg.Dedup.NumPerm > 0,
		LLMExpansion:     cfg.Retrieval.LLMExpansion && av.RealLLM,
		RuleExpansion:    cfg.Retrieval.RuleExpansion,
		Temporal:         cfg.Retrieval.TemporalEnhancement,
		Generation:       av.Generator,
	}
}

// App holds the wired components
type App struct {
	Config       model.Config
	Capabilities model.Capabilities
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Registry     *prometheus.Registry
	Reputation   *reputation.Scorer
	Store        store.FactStore
	Dedup        *dedup.Deduplicator
	Retriever    *pipeline.Retriever
	Answerer     *pipeline.Answerer
	Expander     *query.Expander // nil when expansion is disabled
	Ingester     *ingest.Ingester
	Generator    llm.Generator // nil when no LLM is configured
}

// New validates cfg and builds every component. Misconfiguration of any
// named provider is an error; absent optional providers are not.
func New(cfg model.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)

	m := metrics.NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	// 1. Scoring and storage
	rep, err := reputation.NewScorer(cfg.Reputation)
	if err != nil {
		return nil, err
	}
	st, err := store.New(cfg.Store, score.NewTrustScorer(rep))
	if err != nil {
		return nil, err
	}
	dd := dedup.New(cfg.Dedup)

	// 2. Outbound HTTP
	httpClient := util.NewHTTPClient(cfg.HTTP)
	limiter := worker.NewLimiterFromConfig(cfg.RateLimiting)

	providers, err := search.New(cfg.Search, search.Options{
		HTTP:     cfg.HTTP,
		Client:   httpClient,
		Limiter:  limiter,
		Cache:    cache.FromConfig(cfg.Cache),
		CacheTTL: time.Duration(cfg.Cache.DiskTTL) * time.Second,
		Logger:   logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	// 3. Optional model backends
	gen, err := llm.NewGenerator(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("llm: %w", err)
	}
	emb, err := embed.New(cfg.Embedding, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("embedding: %w", err)
	}
	rr := rerank.New(cfg.Rerank)

	caps := ResolveCapabilities(cfg, Available{
		WebSearch: len(providers) > 0,
		Generator: gen != nil,
		RealLLM:   gen != nil && !llm.IsMock(gen),
		Embedder:  emb != nil,
		Reranker:  rr != nil,
	})

	// 4. Retrieval
	deps := pipeline.RetrieverDeps{
		Analyzer:   query.NewAnalyzer(),
		Reputation: rep,
		Metrics:    m,
	}
	for _, p := range providers {
		deps.Sources = append(deps.Sources, pipeline.NewWebSource(p, nil))
	}
	deps.Sources = append(deps.Sources, pipeline.NewStoreSource(st, cfg.Retrieval.MinStoreLimit))
	if emb != nil {
		deps.Embedder = emb
	}
	if rr != nil {
		deps.Reranker = rr
	}
	if caps.RuleExpansion || caps.LLMExpansion {
		var expGen query.Generator
		if caps.LLMExpansion {
			expGen = gen
		}
		deps.Expander, err = query.NewExpander(expGen, query.ExpanderOptions{
			UseLLM:      caps.LLMExpansion,
			MaxVariants: cfg.Retrieval.MaxVariants,
			Timeout:     time.Duration(cfg.LLM.Timeout) * time.Second,
		}, logger)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	retriever, err := pipeline.NewRetriever(deps, caps, cfg.Retrieval, cfg.Concurrency.SourceWorkers, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	classifier := pipeline.NewClassifier(gen, time.Duration(cfg.LLM.Timeout)*time.Second)
	answerer := pipeline.NewAnswerer(retriever, gen, classifier, logger)

	// 5. Ingestion
	ingester, err := ingest.New(ingest.Options{
		Store:   st,
		Dedup:   dd,
		Fetcher: ingest.NewFetcher(cfg.HTTP),
		Robots:  util.NewRobotsChecker(cfg.HTTP.UserAgent, httpClient),
		Limiter: limiter,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	logger.Info("factrank ready",
		zap.Int("search_providers", len(providers)),
		zap.String("store", cfg.Store.Backend),
		zap.Any("capabilities", caps))

	return &App{
		Config:       cfg,
		Capabilities: caps,
		Logger:       logger,
		Metrics:      m,
		Registry:     reg,
		Reputation:   rep,
		Store:        st,
		Dedup:        dd,
		Retriever:    retriever,
		Answerer:     answerer,
		Expander:     deps.Expander,
		Ingester:     ingester,
		Generator:    gen,
	}, nil
}

// Server builds the HTTP API over the app's components
func (a *App) Server() (*server.Server, error) {
	return server.New(server.Deps{
		Retriever:     a.Retriever,
		Answerer:      a.Answerer,
		Expander:      a.Expander,
		Reputation:    a.Reputation,
		Dedup:         a.Dedup,
		Store:         a.Store,
		Ingester:      a.Ingester,
		IngestWorkers: a.Config.Concurrency.IngestWorkers,
		Metrics:       a.Metrics,
		Gatherer:      a.Registry,
		Config:        a.Config,
	}, a.Config.Server, a.Logger)
}

// Close releases the fact store and flushes the logger
func (a *App) Close() error {
	err := a.Store.Close()
	_ = a.Logger.Sync()
	return err
}
