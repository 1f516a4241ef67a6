package reputation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/factrank/internal/model"
)

const (
	// EmptyURLScore is returned for a missing URL
	EmptyURLScore = 0.5

	// DefaultScore is returned when no table entry or pattern matches
	DefaultScore = 0.45
)

// Scorer assigns a credibility prior and a recency decay coefficient to
// source URLs. All tables are immutable after construction, so a Scorer
// is safe for concurrent use.
type Scorer struct {
	overrides map[string]float64
	known     []hostScore
	knownMap  map[string]float64
	patterns  []*compiledPattern
}

type compiledPattern struct {
	pattern *regexp.Regexp
	score   float64
}

// NewScorer builds a scorer from the built-in tables extended by cfg.
// Override patterns are evaluated before the built-in patterns; a pattern
// that does not compile or a score outside [0,1] is an error.
func NewScorer(cfg model.ReputationConfig) (*Scorer, error) {
	s := &Scorer{
		overrides: make(map[string]float64, len(cfg.Overrides)),
		known:     knownHosts,
		knownMap:  make(map[string]float64, len(knownHosts)),
	}

	for _, h := range knownHosts {
		s.knownMap[h.host] = h.score
	}

	for host, score := range cfg.Overrides {
		if score < 0 || score > 1 {
			return nil, fmt.Errorf("%w: override %s score %v outside [0, 1]", model.ErrInvalidConfig, host, score)
		}
		s.overrides[normalizeHost(host)] = score
	}

	for _, p := range cfg.Patterns {
		if p.Score < 0 || p.Score > 1 {
			return nil, fmt.Errorf("%w: pattern %q score %v outside [0, 1]", model.ErrInvalidConfig, p.Pattern, p.Score)
		}
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %v", model.ErrInvalidConfig, p.Pattern, err)
		}
		s.patterns = append(s.patterns, &compiledPattern{pattern: re, score: p.Score})
	}

	for _, p := range builtinPatterns {
		s.patterns = append(s.patterns, &compiledPattern{
			pattern: regexp.MustCompile(p.pattern),
			score:   p.score,
		})
	}

	return s, nil
}

// MustNewScorer is NewScorer with the built-in tables only
func MustNewScorer() *Scorer {
	s, err := NewScorer(model.ReputationConfig{})
	if err != nil {
		panic(err)
	}
	return s
}

// Score returns the reputation prior for the URL's host
func (s *Scorer) Score(rawURL string) float64 {
	if strings.TrimSpace(rawURL) == "" {
		return EmptyURLScore
	}

	host := normalizeHost(rawURL)
	if host == "" {
		return DefaultScore
	}

	if score, ok := s.overrides[host]; ok {
		return score
	}

	if score, ok := s.knownMap[host]; ok {
		return score
	}

	// Subdomain match, in table order
	for _, h := range s.known {
		if strings.Contains(host, h.host) {
			return h.score
		}
	}

	for _, cp := range s.patterns {
		if cp.pattern.MatchString(host) {
			return cp.score
		}
	}

	return DefaultScore
}

// RecencyWeight returns the decay coefficient for the URL's source family
func (s *Scorer) RecencyWeight(rawURL string) float64 {
	if strings.TrimSpace(rawURL) == "" {
		return recencyDefault
	}

	host := normalizeHost(rawURL)
	for _, fam := range recencyFamilies {
		for _, marker := range fam.markers {
			if strings.Contains(host, marker) {
				return fam.weight
			}
		}
	}
	return recencyDefault
}

// Explain reports the score together with a named authority category
func (s *Scorer) Explain(rawURL string) model.DomainExplanation {
	score := s.Score(rawURL)
	category, reason := categorize(score)

	return model.DomainExplanation{
		URL:           rawURL,
		DomainScore:   score,
		RecencyWeight: s.RecencyWeight(rawURL),
		Category:      category,
		Reason:        reason,
	}
}

// KnownDomains returns a copy of the curated host table
func (s *Scorer) KnownDomains() map[string]float64 {
	out := make(map[string]float64, len(s.knownMap))
	for k, v := range s.knownMap {
		out[k] = v
	}
	return out
}

func categorize(score float64) (string, string) {
	switch {
	case score >= 0.90:
		return "High Authority", "Top-tier academic/research source"
	case score >= 0.80:
		return "Strong Authority", "Reputable academic or research institution"
	case score >= 0.70:
		return "Good Authority", "Trusted technical or educational source"
	case score >= 0.60:
		return "Moderate Authority", "Credible but not authoritative"
	case score >= 0.45:
		return "Neutral", "Unknown or commercial domain"
	default:
		return "Low Authority", "Blog, social media, or unverified source"
	}
}

// normalizeHost reduces a URL or bare host to a lowercase host without
// port or leading www.
func normalizeHost(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}
