package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/factrank/internal/embed"
	"github.com/ppiankov/factrank/internal/lexical"
	"github.com/ppiankov/factrank/internal/logging"
	"github.com/ppiankov/factrank/internal/metrics"
	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/query"
	"github.com/ppiankov/factrank/internal/reputation"
	"github.com/ppiankov/factrank/internal/rerank"
)

// Branches recorded in Trace
const (
	SemanticEmbedding         = "embedding"
	SemanticTokenOverlap      = "token_overlap"
	SemanticOverlapAfterError = "token_overlap_after_error"

	LexicalBM25     = "bm25"
	LexicalDisabled = "disabled"

	RerankCrossEncoder = "cross_encoder"
	RerankFailed       = "cross_encoder_failed"
	RerankDisabled     = "disabled"
)

// RetrieverDeps are the collaborators a Retriever ranks with. Optional
// ones are only consulted when the matching capability flag is set.
type RetrieverDeps struct {
	Analyzer   *query.Analyzer
	Expander   *query.Expander
	Sources    []Source
	Reputation *reputation.Scorer
	Embedder   embed.Embedder
	Reranker   rerank.Reranker
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// SourceError records one failed or timed out source call
type SourceError struct {
	Source  string `json:"source"`
	Variant string `json:"variant"`
	Error   string `json:"error"`
}

// Trace records which branch each optional subsystem took
type Trace struct {
	Semantic     string        `json:"semantic"`
	Lexical      string        `json:"lexical"`
	Rerank       string        `json:"rerank"`
	Candidates   int           `json:"candidates"`
	SourceErrors []SourceError `json:"source_errors,omitempty"`
}

// RetrievalResult is the ranked output of one retrieval
type RetrievalResult struct {
	Facts    []model.Fact         `json:"facts"`
	K        int                  `json:"k"`
	Analysis *model.QueryAnalysis `json:"analysis,omitempty"`
	Variants []string             `json:"variants"`
	Trace    Trace                `json:"trace"`
}

// Retriever gathers candidates from every source for every query variant
// and ranks them with the hybrid score
type Retriever struct {
	deps   RetrieverDeps
	caps   model.Capabilities
	cfg    model.RetrievalConfig
	conc   int
	logger *zap.Logger
}

// NewRetriever validates that every enabled capability has its collaborator
func NewRetriever(deps RetrieverDeps, caps model.Capabilities, cfg model.RetrievalConfig, sourceWorkers int, logger *zap.Logger) (*Retriever, error) {
	if len(deps.Sources) == 0 {
		return nil, fmt.Errorf("%w: no retrieval sources configured", model.ErrInvalidConfig)
	}
	if caps.Embeddings && deps.Embedder == nil {
		return nil, fmt.Errorf("%w: embeddings enabled without an embedder", model.ErrInvalidConfig)
	}
	if caps.CrossEncoder && deps.Reranker == nil {
		return nil, fmt.Errorf("%w: cross-encoder enabled without a reranker", model.ErrInvalidConfig)
	}
	if (caps.RuleExpansion || caps.LLMExpansion) && deps.Expander == nil {
		return nil, fmt.Errorf("%w: query expansion enabled without an expander", model.ErrInvalidConfig)
	}

	if deps.Analyzer == nil {
		deps.Analyzer = query.NewAnalyzer()
	}
	if deps.Reputation == nil {
		deps.Reputation = reputation.MustNewScorer()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	defaults := model.DefaultConfig().Retrieval
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = defaults.SourceTimeout
	}
	if cfg.PreliminaryMin <= 0 {
		cfg.PreliminaryMin = defaults.PreliminaryMin
	}
	if cfg.MinStoreLimit <= 0 {
		cfg.MinStoreLimit = defaults.MinStoreLimit
	}
	if cfg.PriorWeight == 0 && cfg.LexicalWeight == 0 && cfg.SemanticWeight == 0 {
		cfg.PriorWeight = defaults.PriorWeight
		cfg.LexicalWeight = defaults.LexicalWeight
		cfg.SemanticWeight = defaults.SemanticWeight
	}
	if sourceWorkers <= 0 {
		sourceWorkers = 1
	}

	return &Retriever{
		deps:   deps,
		caps:   caps,
		cfg:    cfg,
		conc:   sourceWorkers,
		logger: logging.OrNop(logger),
	}, nil
}

// Capabilities reports the flags the retriever was built with
func (r *Retriever) Capabilities() model.Capabilities {
	return r.caps
}

// Analyze exposes the query analyzer
func (r *Retriever) Analyze(q string) model.QueryAnalysis {
	return r.deps.Analyzer.Analyze(q)
}

// Retrieve returns at most k facts ranked for q. k <= 0 lets the query
// analyzer decide. Source and subsystem failures degrade the result but
// never fail the call; only a cancelled ctx does.
func (r *Retriever) Retrieve(ctx context.Context, q string, k int) (*RetrievalResult, error) {
	start := time.Now()
	res := &RetrievalResult{}

	// 1. Decide k
	if k <= 0 && r.cfg.DefaultK > 0 {
		k = r.cfg.DefaultK
	}
	if k <= 0 {
		analysis := r.deps.Analyzer.Analyze(q)
		res.Analysis = &analysis
		k = analysis.NumSources
		r.logger.Debug("query analyzed",
			zap.String("complexity", string(analysis.Complexity)),
			zap.Int("num_sources", k),
			zap.String("reasoning", analysis.Reasoning))
	}
	res.K = k

	// 2. Query variants
	res.Variants = r.variants(ctx, q)

	// 3. Gather and merge
	candidates, sourceErrs := r.gather(ctx, res.Variants, k)
	if err := ctx.Err(); err != nil {
		r.deps.Metrics.ObserveRetrieval(metrics.StatusFailure, time.Since(start).Seconds(), 0)
		return nil, err
	}
	res.Trace.SourceErrors = sourceErrs
	res.Trace.Candidates = len(candidates)

	// 4. Hybrid score and preliminary cut
	r.hybridScore(ctx, q, candidates, &res.Trace)
	sortCandidates(candidates)
	prelim := candidates[:min(len(candidates), max(2*k, r.cfg.PreliminaryMin))]

	// 5. Optional cross-encoder
	top := r.rerank(ctx, q, prelim, &res.Trace)
	top = top[:min(len(top), k)]

	// 6. Rank indices
	for i := range top {
		top[i].Idx = i + 1
	}
	res.Facts = top

	r.deps.Metrics.ObserveRetrieval(metrics.StatusSuccess, time.Since(start).Seconds(), len(candidates))
	r.logger.Info("retrieval complete",
		zap.String("query", q),
		zap.Int("k", k),
		zap.Int("variants", len(res.Variants)),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(top)),
		zap.Int("source_errors", len(sourceErrs)))
	return res, nil
}

// variants returns the expansion list, with the temporal rewrite first
// when the query asks for recent information
func (r *Retriever) variants(ctx context.Context, q string) []string {
	variants := []string{q}
	if (r.caps.RuleExpansion || r.caps.LLMExpansion) && r.deps.Expander != nil {
		variants = r.deps.Expander.Expand(ctx, q)
	}
	if r.caps.Temporal {
		if enhanced := query.EnhanceTemporal(q, r.deps.Now()); enhanced != q {
			variants = append([]string{enhanced}, variants...)
		}
	}
	return variants
}

type sourceBatch struct {
	facts []model.Fact
	err   error
}

// gather runs every (variant, source) pair concurrently and merges the
// results in variant then source order so collisions resolve the same way
// on every run
func (r *Retriever) gather(ctx context.Context, variants []string, k int) ([]model.Fact, []SourceError) {
	sources := r.deps.Sources
	batches := make([]sourceBatch, len(variants)*len(sources))
	timeout := time.Duration(r.cfg.SourceTimeout) * time.Second

	var g errgroup.Group
	g.SetLimit(r.conc)
	for vi, variant := range variants {
		for si, src := range sources {
			slot := &batches[vi*len(sources)+si]
			g.Go(func() error {
				callCtx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				facts, err := src.Fetch(callCtx, variant, k)
				if err == nil && callCtx.Err() != nil {
					err = callCtx.Err()
				}
				slot.facts, slot.err = facts, err
				return nil
			})
		}
	}
	_ = g.Wait()

	var errs []SourceError
	merged := make(map[string]int)
	var out []model.Fact
	for i, b := range batches {
		variant := variants[i/len(sources)]
		src := sources[i%len(sources)]
		if b.err != nil {
			errs = append(errs, SourceError{Source: src.Name(), Variant: variant, Error: b.err.Error()})
			r.deps.Metrics.IncSourceError(src.Name())
			r.logger.Warn("source failed",
				zap.String("source", src.Name()),
				zap.String("variant", variant),
				zap.Error(b.err))
			continue
		}
		for _, f := range b.facts {
			f = r.withDomain(f.Normalized())
			key := f.Key()
			if pos, ok := merged[key]; ok {
				if f.Score > out[pos].Score {
					out[pos] = f
				}
				continue
			}
			merged[key] = len(out)
			out = append(out, f)
		}
	}
	return out, errs
}

// withDomain fills domain reputation for facts that arrive unscored
func (r *Retriever) withDomain(f model.Fact) model.Fact {
	if f.DomainScore == 0 {
		f.DomainScore = r.deps.Reputation.Score(f.SourceURL)
	}
	if f.RecencyWeight == 0 {
		f.RecencyWeight = r.deps.Reputation.RecencyWeight(f.SourceURL)
	}
	return f
}

func (r *Retriever) hybridScore(ctx context.Context, q string, facts []model.Fact, trace *Trace) {
	if len(facts) == 0 {
		trace.Lexical = LexicalDisabled
		if r.caps.Lexical {
			trace.Lexical = LexicalBM25
		}
		trace.Semantic = SemanticTokenOverlap
		if r.caps.Embeddings {
			trace.Semantic = SemanticEmbedding
		}
		return
	}

	texts := make([]string, len(facts))
	tokens := make([][]string, len(facts))
	for i, f := range facts {
		texts[i] = f.Text()
		tokens[i] = lexical.Tokenize(texts[i])
	}
	qTokens := lexical.Tokenize(q)

	// Lexical
	bm25 := make([]float64, len(facts))
	trace.Lexical = LexicalDisabled
	if r.caps.Lexical {
		bm25 = lexical.New(tokens).Scores(qTokens)
		trace.Lexical = LexicalBM25
	}

	// Semantic
	semantic, branch := r.semanticScores(ctx, q, texts, qTokens, tokens)
	trace.Semantic = branch

	for i := range facts {
		facts[i].HybridScore = r.cfg.PriorWeight*facts[i].Score +
			r.cfg.LexicalWeight*bm25[i] +
			r.cfg.SemanticWeight*semantic[i]
	}
}

func (r *Retriever) semanticScores(ctx context.Context, q string, texts []string, qTokens []string, tokens [][]string) ([]float64, string) {
	overlap := func() []float64 {
		out := make([]float64, len(tokens))
		for i, t := range tokens {
			out[i] = embed.TokenOverlap(qTokens, t)
		}
		return out
	}

	if !r.caps.Embeddings {
		return overlap(), SemanticTokenOverlap
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.SourceTimeout)*time.Second)
	defer cancel()
	vecs, err := r.deps.Embedder.Embed(callCtx, append([]string{q}, texts...))
	if err == nil && len(vecs) != len(texts)+1 {
		err = errors.New("embedder returned wrong number of vectors")
	}
	if err != nil {
		r.logger.Warn("embedding failed, using token overlap", zap.Error(err))
		r.deps.Metrics.IncDegraded("semantic")
		return overlap(), SemanticOverlapAfterError
	}

	out := make([]float64, len(texts))
	for i := range texts {
		out[i] = embed.Cosine(vecs[0], vecs[i+1])
	}
	return out, SemanticEmbedding
}

// rerank reorders the preliminary set by cross-encoder score. On failure
// the preliminary order stands.
func (r *Retriever) rerank(ctx context.Context, q string, prelim []model.Fact, trace *Trace) []model.Fact {
	if !r.caps.CrossEncoder {
		trace.Rerank = RerankDisabled
		return prelim
	}
	if len(prelim) == 0 {
		trace.Rerank = RerankCrossEncoder
		return prelim
	}

	docs := make([]string, len(prelim))
	for i, f := range prelim {
		docs[i] = f.Text()
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.SourceTimeout)*time.Second)
	defer cancel()
	scores, err := r.deps.Reranker.Rerank(callCtx, q, docs)
	if err == nil && len(scores) != len(prelim) {
		err = fmt.Errorf("reranker returned %d scores for %d documents", len(scores), len(prelim))
	}
	if err != nil {
		r.logger.Warn("cross-encoder failed, keeping hybrid order", zap.Error(err))
		r.deps.Metrics.IncDegraded("rerank")
		trace.Rerank = RerankFailed
		return prelim
	}

	order := make([]int, len(prelim))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	out := make([]model.Fact, len(prelim))
	for i, idx := range order {
		out[i] = prelim[idx]
	}
	trace.Rerank = RerankCrossEncoder
	return out
}

// sortCandidates orders by hybrid score, then domain score, then key
func sortCandidates(facts []model.Fact) {
	sort.SliceStable(facts, func(i, j int) bool {
		a, b := facts[i], facts[j]
		if a.HybridScore != b.HybridScore {
			return a.HybridScore > b.HybridScore
		}
		if a.DomainScore != b.DomainScore {
			return a.DomainScore > b.DomainScore
		}
		return a.Key() < b.Key()
	})
}

