package model

import (
	"strings"
	"time"
)

// SearchResult is a single hit returned by a web search provider
type SearchResult struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Snippet   string `json:"snippet"`
	Source    string `json:"source"`              // Display domain as reported by the provider
	Timestamp string `json:"timestamp,omitempty"` // Best-effort publication date
}

// ProviderScore is the score assigned to facts derived from web results
const ProviderScore = 0.8

// ToFact converts a search hit into a fact the retriever can rank
func (r SearchResult) ToFact(now time.Time) Fact {
	ts := r.Timestamp
	if ts == "" {
		ts = now.Format("2006-01-02")
	}

	return Fact{
		ID:          r.URL + "#snippet",
		Subject:     r.Title,
		Predicate:   "content",
		Object:      r.Snippet,
		SourceURL:   r.URL,
		SourceName:  r.Source,
		TruthWeight: Float64Ptr(HostTruthWeight(r.URL)),
		TS:          ts,
		Score:       ProviderScore,
	}
}

// HostTruthWeight is a coarse prior derived from substrings of the URL
func HostTruthWeight(rawURL string) float64 {
	u := strings.ToLower(rawURL)
	switch {
	case containsAny(u, ".gov", ".edu", "arxiv.org", "nature.com", "science.org"):
		return 0.9
	case containsAny(u, ".org", "wikipedia.org", "stackoverflow.com", "github.com"):
		return 0.75
	case containsAny(u, "medium.com", "towardsdatascience.com", "blog"):
		return 0.6
	default:
		return DefaultTruthWeight
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
