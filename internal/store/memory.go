package store

import (
	"context"
	"sync"

	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/score"
)

// MemoryStore keeps facts in insertion order. Upserting an existing id
// moves the fact to the end.
type MemoryStore struct {
	mu     sync.RWMutex
	facts  []model.Fact
	canon  *Canonicalizer
	scorer *score.TrustScorer
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(scorer *score.TrustScorer) *MemoryStore {
	return &MemoryStore{
		canon:  NewCanonicalizer(),
		scorer: scorer,
	}
}

// UpsertFact implements FactStore
func (s *MemoryStore) UpsertFact(_ context.Context, f model.Fact) error {
	f = prepare(s.canon, f)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.facts[:0]
	for _, existing := range s.facts {
		if existing.ID != f.ID {
			kept = append(kept, existing)
		}
	}
	s.facts = append(kept, f)
	return nil
}

// SearchFacts implements FactStore
func (s *MemoryStore) SearchFacts(_ context.Context, terms []string, limit int) ([]model.Fact, error) {
	s.mu.RLock()
	candidates := make([]model.Fact, len(s.facts))
	copy(candidates, s.facts)
	s.mu.RUnlock()

	return rank(s.scorer, candidates, terms, score.PoolFromFacts(candidates), limit), nil
}

// FactsBySubject implements FactStore
func (s *MemoryStore) FactsBySubject(_ context.Context, subject string, limit int) ([]model.Fact, error) {
	if limit <= 0 {
		limit = DefaultSubjectLimit
	}
	subj := s.canon.Canonicalize(subject)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Fact
	for _, f := range s.facts {
		if f.Subject != subj {
			continue
		}
		out = append(out, f)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// AddAliases implements FactStore
func (s *MemoryStore) AddAliases(_ context.Context, canonical string, aliases []string) error {
	s.canon.AddAliases(canonical, aliases)
	return nil
}

// Count implements FactStore
func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.facts), nil
}

// Close implements FactStore
func (s *MemoryStore) Close() error { return nil }
