package model

// Complexity is the tier a query falls into
type Complexity string

const (
	ComplexitySimple       Complexity = "simple"
	ComplexityMedium       Complexity = "medium"
	ComplexityComplex      Complexity = "complex"
	ComplexityDeepResearch Complexity = "deep_research"
)

// Title renders the tier for human-facing reasoning strings
func (c Complexity) Title() string {
	switch c {
	case ComplexitySimple:
		return "Simple"
	case ComplexityMedium:
		return "Medium"
	case ComplexityComplex:
		return "Complex"
	case ComplexityDeepResearch:
		return "Deep Research"
	default:
		return string(c)
	}
}

// QueryAnalysis is the result of analyzing a query for retrieval depth
type QueryAnalysis struct {
	NumSources      int        `json:"num_sources"` // Always in [3, 25]
	Complexity      Complexity `json:"complexity"`
	ComplexityScore float64    `json:"complexity_score"` // [0, 1]
	Confidence      float64    `json:"confidence"`       // [0.6, 0.95]
	Reasoning       string     `json:"reasoning"`
}

// DomainExplanation describes how a URL's authority was scored
type DomainExplanation struct {
	URL           string  `json:"url"`
	DomainScore   float64 `json:"domain_score"`
	RecencyWeight float64 `json:"recency_weight"`
	Category      string  `json:"category"`
	Reason        string  `json:"reason"`
}

// ContentFingerprint identifies a piece of content for deduplication
type ContentFingerprint struct {
	ContentHash string   `json:"content_hash"`        // sha256 hex of the normalized text
	Signature   []uint64 `json:"signature,omitempty"` // MinHash sketch, nil when unavailable
	SourceURL   string   `json:"source_url,omitempty"`
	Title       string   `json:"title,omitempty"`
	Length      int      `json:"length"` // Length of the original text
}
