package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/score"
	"github.com/ppiankov/factrank/internal/search"
	"github.com/ppiankov/factrank/internal/store"
)

// Source supplies candidate facts for one query variant
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string, k int) ([]model.Fact, error)
}

// WebSource adapts a search provider. Hits become facts with the fixed
// provider score.
type WebSource struct {
	provider search.Provider
	now      func() time.Time
}

// NewWebSource wraps p
func NewWebSource(p search.Provider, now func() time.Time) *WebSource {
	if now == nil {
		now = time.Now
	}
	return &WebSource{provider: p, now: now}
}

func (w *WebSource) Name() string { return w.provider.Name() }

func (w *WebSource) Fetch(ctx context.Context, query string, k int) ([]model.Fact, error) {
	results, err := w.provider.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	now := w.now()
	facts := make([]model.Fact, 0, len(results))
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		facts = append(facts, r.ToFact(now))
	}
	return facts, nil
}

// StoreSource adapts the fact store. Facts come back trust-scored.
type StoreSource struct {
	store    store.FactStore
	minLimit int
}

// NewStoreSource wraps s; each search asks for max(3k, minLimit) facts
func NewStoreSource(s store.FactStore, minLimit int) *StoreSource {
	return &StoreSource{store: s, minLimit: minLimit}
}

func (s *StoreSource) Name() string { return "store" }

func (s *StoreSource) Fetch(ctx context.Context, query string, k int) ([]model.Fact, error) {
	terms := score.Terms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	facts, err := s.store.SearchFacts(ctx, terms, max(3*k, s.minLimit))
	if err != nil {
		return nil, fmt.Errorf("store search: %w", err)
	}
	return facts, nil
}
