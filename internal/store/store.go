// Package store persists facts and answers trust-scored term searches
// over them. Two backends share one contract: an in-memory store and a
// SQLite store.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/score"
)

const (
	// DefaultSearchLimit applies when SearchFacts gets a non-positive limit
	DefaultSearchLimit = 8
	// DefaultSubjectLimit applies when FactsBySubject gets a non-positive limit
	DefaultSubjectLimit = 20
)

// FactStore is the contract shared by all fact store backends
type FactStore interface {
	// UpsertFact inserts or replaces a fact by id. Subject and object are
	// canonicalized and transient fields are never persisted.
	UpsertFact(ctx context.Context, f model.Fact) error

	// SearchFacts returns facts with at least one term hit, trust-scored
	// with corroboration and ordered by score descending
	SearchFacts(ctx context.Context, terms []string, limit int) ([]model.Fact, error)

	// FactsBySubject returns facts whose canonical subject matches
	FactsBySubject(ctx context.Context, subject string, limit int) ([]model.Fact, error)

	// AddAliases maps aliases to a canonical entity id
	AddAliases(ctx context.Context, canonical string, aliases []string) error

	Count(ctx context.Context) (int, error)
	Close() error
}

// New creates the fact store selected by cfg.Backend
func New(cfg model.StoreConfig, scorer *score.TrustScorer) (FactStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(scorer), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path, scorer)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q (supported: memory, sqlite)", model.ErrInvalidConfig, cfg.Backend)
	}
}

// prepare canonicalizes a fact for storage
func prepare(c *Canonicalizer, f model.Fact) model.Fact {
	f = f.StripTransient()
	if f.TruthWeight != nil {
		f.TruthWeight = model.Float64Ptr(f.EffectiveTruthWeight())
	}
	f.Subject = c.Canonicalize(f.Subject)
	f.Object = c.Canonicalize(f.Object)
	if f.ID == "" {
		f.ID = f.Key()
	}
	return f
}

// rank scores candidates, drops those without hits and returns the top
// limit by score. Ties keep candidate order.
func rank(scorer *score.TrustScorer, candidates []model.Fact, terms []string, pool score.CorroborationSource, limit int) []model.Fact {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	scored := scorer.ScoreAll(candidates, terms, pool)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
