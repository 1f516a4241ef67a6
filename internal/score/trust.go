package score

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/reputation"
)

const (
	// DefaultAgeYears is assumed when a fact's timestamp has no leading year
	DefaultAgeYears = 3

	hitWeight          = 0.5
	truthWeightFactor  = 0.25
	domainWeightFactor = 0.25
	corrWeightFactor   = 0.15
	corrStep           = 0.06
	corrCap            = 0.25
	recentBoost        = 3.0
)

// CorroborationSource counts the distinct sources asserting a
// (subject, predicate) pair. ok is false when the source cannot answer.
type CorroborationSource interface {
	Corroboration(subject, predicate string) (count int, ok bool)
}

// TrustResult holds the per-fact output of the trust scorer
type TrustResult struct {
	Score              float64
	TrustScore         float64
	DomainScore        float64
	Recency            float64 // Decayed recency contribution before boost
	RecencyBoost       float64
	Hits               int
	CorroborationCount *int
	Explain            string
}

// TrustScorer combines term hits, truth weight, domain reputation,
// corroboration and recency into a single relevance score
type TrustScorer struct {
	reputation *reputation.Scorer
	now        func() time.Time
}

// Option configures a TrustScorer
type Option func(*TrustScorer)

// WithClock overrides the clock used to compute fact age
func WithClock(now func() time.Time) Option {
	return func(s *TrustScorer) {
		s.now = now
	}
}

// NewTrustScorer creates a trust scorer backed by the given reputation tables
func NewTrustScorer(rep *reputation.Scorer, opts ...Option) *TrustScorer {
	s := &TrustScorer{
		reputation: rep,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score evaluates a fact against the query terms. pool may be nil, in
// which case the corroboration count is reported as unknown.
func (s *TrustScorer) Score(f model.Fact, terms []string, pool CorroborationSource) TrustResult {
	tw := f.EffectiveTruthWeight()

	// 1. Term hits
	hits := CountHits(f, terms)
	if hits == 0 {
		return TrustResult{
			TrustScore:  tw,
			DomainScore: reputation.EmptyURLScore,
			Explain:     "no term hits",
		}
	}

	// 2. Domain reputation
	domainScore := s.reputation.Score(f.SourceURL)
	multiplier := s.reputation.RecencyWeight(f.SourceURL)

	// 3. Recency decay
	age := ageYears(f.TS, s.now())
	recency := multiplier * math.Exp(-float64(age)/4.0)
	boost := 1.0
	if age <= 1 {
		boost = recentBoost
	}

	// 4. Corroboration
	var corrCount *int
	corrTerm := 0.0
	if pool != nil {
		if n, ok := pool.Corroboration(f.Subject, f.Predicate); ok {
			n = max(1, n)
			corrCount = model.IntPtr(n)
			corrTerm = model.Clamp(corrStep*float64(n-1), 0, corrCap)
		}
	}

	trust := truthWeightFactor*tw + domainWeightFactor*domainScore + corrWeightFactor*corrTerm
	total := float64(hits)*hitWeight + trust + recency*boost

	return TrustResult{
		Score:              total,
		TrustScore:         trust,
		DomainScore:        domainScore,
		Recency:            recency,
		RecencyBoost:       boost,
		Hits:               hits,
		CorroborationCount: corrCount,
		Explain:            explain(hits, trust, tw, domainScore, corrCount, recency, boost),
	}
}

// Apply copies a result into the fact's transient fields
func (s *TrustScorer) Apply(f *model.Fact, r TrustResult) {
	f.Score = r.Score
	f.TrustScore = r.TrustScore
	f.TrustExplain = r.Explain
	f.CorroborationCount = r.CorroborationCount
	f.RecencyWeight = r.Recency
	f.DomainScore = r.DomainScore
}

// ScoreAll scores every fact in place and returns the ones with at least
// one term hit
func (s *TrustScorer) ScoreAll(facts []model.Fact, terms []string, pool CorroborationSource) []model.Fact {
	out := make([]model.Fact, 0, len(facts))
	for _, f := range facts {
		r := s.Score(f, terms, pool)
		if r.Hits == 0 {
			continue
		}
		s.Apply(&f, r)
		out = append(out, f)
	}
	return out
}

func explain(hits int, trust, tw, domain float64, corr *int, recency, boost float64) string {
	corrStr := "unknown"
	if corr != nil {
		corrStr = strconv.Itoa(*corr)
	}
	return fmt.Sprintf("hits=%d*0.5 + trust=%.2f (tw=%.2f, domain=%.2f, corr=%s) + recency=%.2f*%.1f",
		hits, trust, tw, domain, corrStr, recency, boost)
}

// CountHits counts query terms longer than two characters that occur in
// the lowercase fact text
func CountHits(f model.Fact, terms []string) int {
	text := strings.ToLower(f.Subject + " " + f.Predicate + " " + f.Object)
	hits := 0
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if len(t) > 2 && strings.Contains(text, t) {
			hits++
		}
	}
	return hits
}

// Terms splits a query into lowercase terms longer than two characters
func Terms(q string) []string {
	var out []string
	for _, t := range strings.Fields(strings.ToLower(q)) {
		if len(t) > 2 {
			out = append(out, t)
		}
	}
	return out
}

func ageYears(ts string, now time.Time) int {
	ts = strings.TrimSpace(ts)
	if len(ts) < 4 {
		return DefaultAgeYears
	}
	year, err := strconv.Atoi(ts[:4])
	if err != nil || year <= 0 {
		return DefaultAgeYears
	}
	return max(0, now.Year()-year)
}
