package model

import (
	"math"
	"strings"
)

// DefaultTruthWeight is used when a fact carries no usable prior
const DefaultTruthWeight = 0.5

// Fact is a subject-predicate-object triple with provenance.
// Fields below Score are transient: they are computed per request and
// never persisted.
type Fact struct {
	ID          string  `json:"id,omitempty" yaml:"id,omitempty"`
	Subject     string  `json:"subject"`
	Predicate   string  `json:"predicate"`
	Object      string  `json:"object"`
	SourceURL   string  `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	SourceName  string  `json:"source_name,omitempty" yaml:"source_name,omitempty"`
	TruthWeight *float64 `json:"truth_weight,omitempty" yaml:"truth_weight,omitempty"` // Prior credibility in [0,1], nil when absent
	TS          string  `json:"ts,omitempty" yaml:"ts,omitempty"` // ISO timestamp or leading year

	Score              float64 `json:"score"`                         // Provider or preliminary score
	TrustScore         float64 `json:"trust_score"`                   // Output of the trust scorer
	TrustExplain       string  `json:"trust_explain,omitempty"`       // Human-readable formula
	CorroborationCount *int    `json:"corroboration_count,omitempty"` // nil when unknown
	RecencyWeight      float64 `json:"recency_weight"`
	DomainScore        float64 `json:"domain_score"`
	HybridScore        float64 `json:"hybrid_score"`
	Idx                int     `json:"idx,omitempty"` // 1-based final rank
}

// Key returns the composite identity used when merging result sets
func (f Fact) Key() string {
	if f.ID != "" {
		return f.ID
	}
	return f.Subject + "|" + f.Predicate + "|" + f.Object
}

// Text joins the triple into a single searchable string
func (f Fact) Text() string {
	return strings.TrimSpace(strings.Join([]string{f.Subject, f.Predicate, f.Object}, " "))
}

// EffectiveTruthWeight returns the prior with absent or NaN values mapped
// to the neutral default and out-of-range values clamped. An explicit 0
// stays 0.
func (f Fact) EffectiveTruthWeight() float64 {
	if f.TruthWeight == nil || math.IsNaN(*f.TruthWeight) {
		return DefaultTruthWeight
	}
	return Clamp(*f.TruthWeight, 0, 1)
}

// Normalized returns a copy with neutral defaults filled in
func (f Fact) Normalized() Fact {
	f.TruthWeight = Float64Ptr(f.EffectiveTruthWeight())
	f.Subject = strings.TrimSpace(f.Subject)
	f.Predicate = strings.TrimSpace(f.Predicate)
	f.Object = strings.TrimSpace(f.Object)
	return f
}

// StripTransient zeroes every per-request field
func (f Fact) StripTransient() Fact {
	f.Score = 0
	f.TrustScore = 0
	f.TrustExplain = ""
	f.CorroborationCount = nil
	f.RecencyWeight = 0
	f.DomainScore = 0
	f.HybridScore = 0
	f.Idx = 0
	return f
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IntPtr is a convenience for optional counts
func IntPtr(v int) *int {
	return &v
}

// Float64Ptr is a convenience for optional weights
func Float64Ptr(v float64) *float64 {
	return &v
}
