package score

import "github.com/ppiankov/factrank/internal/model"

// Pool is an in-memory corroboration index over a candidate set
type Pool struct {
	sources map[string]map[string]struct{}
}

// PoolFromFacts indexes distinct source URLs by (subject, predicate)
func PoolFromFacts(facts []model.Fact) *Pool {
	p := &Pool{sources: make(map[string]map[string]struct{})}
	for _, f := range facts {
		key := pairKey(f.Subject, f.Predicate)
		set, ok := p.sources[key]
		if !ok {
			set = make(map[string]struct{})
			p.sources[key] = set
		}
		set[f.SourceURL] = struct{}{}
	}
	return p
}

// Corroboration implements CorroborationSource
func (p *Pool) Corroboration(subject, predicate string) (int, bool) {
	if p == nil {
		return 0, false
	}
	return len(p.sources[pairKey(subject, predicate)]), true
}

func pairKey(subject, predicate string) string {
	return subject + "\x00" + predicate
}
