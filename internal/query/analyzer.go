package query

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/factrank/internal/model"
)

const (
	MinSources = 3
	MaxSources = 25
)

// Analyzer maps query text to a retrieval depth. It holds only
// immutable tables and is safe for concurrent use.
type Analyzer struct {
	simple       []*regexp.Regexp
	complex      []*regexp.Regexp
	deepResearch []*regexp.Regexp
	controversy  []string
	multiEntity  []string
}

// NewAnalyzer compiles the keyword tables
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		simple:       compileWordPatterns(simpleIndicators),
		complex:      compileWordPatterns(complexIndicators),
		deepResearch: compileWordPatterns(deepResearchIndicators),
		controversy:  controversyKeywords,
		multiEntity:  multiEntityKeywords,
	}
}

var simpleIndicators = []string{
	"who is", "what is", "when was", "where is",
	"define", "meaning of", "short answer",
}

var complexIndicators = []string{
	"compare", "contrast", "versus", "vs",
	"difference between", "advantages and disadvantages",
	"pros and cons", "latest", "recent", "current",
	"new", "trending", "2024", "2025",
}

var deepResearchIndicators = []string{
	"comprehensive", "detailed analysis", "in-depth",
	"all aspects", "everything about", "complete guide",
	"list all", "what are all", "tell me everything",
	"exhaustive", "thorough", "all the", "analysis of",
}

// Matched as plain substrings, so "and" also fires inside "understand".
var controversyKeywords = []string{
	"debate", "controversy", "disputed", "conflicting", "evidence",
	"claim", "prove", "disprove", "myth", "fact check", "true or false",
	"is it true", "really", "actually", "climate change", "vaccine",
	"conspiracy", "fake news", "misinformation", "covid", "pandemic",
}

var multiEntityKeywords = []string{
	"and", "or", "versus", "vs", "compared to", "different types of",
	"various", "multiple", "several", "many", "list of",
}

func compileWordPatterns(phrases []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(phrases))
	for i, p := range phrases {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`)
	}
	return out
}

// Analyze scores the query and picks the number of sources to retrieve
func (a *Analyzer) Analyze(q string) model.QueryAnalysis {
	lower := strings.ToLower(q)
	score := a.complexityScore(lower)
	numSources, tier := sourcesForScore(score)

	return model.QueryAnalysis{
		NumSources:      numSources,
		Complexity:      tier,
		ComplexityScore: score,
		Confidence:      min(0.95, 0.6+score*0.35),
		Reasoning:       a.reasoning(q, lower, tier),
	}
}

// OptimalSources is shorthand for Analyze(q).NumSources
func (a *Analyzer) OptimalSources(q string) int {
	return a.Analyze(q).NumSources
}

func (a *Analyzer) complexityScore(lower string) float64 {
	words := strings.Fields(lower)
	score := min(0.2, float64(len(words))/50.0)

	if anyRegex(a.simple, lower) {
		score -= 0.15
	}

	score += min(0.3, float64(countRegex(a.complex, lower))*0.15)
	score += min(0.4, float64(countRegex(a.deepResearch, lower))*0.2)
	score += min(0.25, float64(countSubstr(a.controversy, lower))*0.125)
	score += min(0.2, float64(countSubstr(a.multiEntity, lower))*0.1)

	if qm := strings.Count(lower, "?"); qm > 1 {
		score += min(0.15, float64(qm-1)*0.075)
	}

	longWords := 0
	for _, w := range words {
		if utf8.RuneCountInString(w) >= 8 {
			longWords++
		}
	}
	score += min(0.15, float64(longWords)*0.03)

	return model.Clamp(score, 0, 1)
}

// sourcesForScore maps a score to its band. Each band interpolates
// linearly and truncates toward zero before clamping.
func sourcesForScore(score float64) (int, model.Complexity) {
	switch {
	case score < 0.25:
		return clampInt(int(3+score*8), 3, 5), model.ComplexitySimple
	case score < 0.50:
		return clampInt(int(5+(score-0.25)*12), 5, 8), model.ComplexityMedium
	case score < 0.75:
		return clampInt(int(8+(score-0.50)*28), 8, 15), model.ComplexityComplex
	default:
		return clampInt(int(15+(score-0.75)*40), 15, 25), model.ComplexityDeepResearch
	}
}

func (a *Analyzer) reasoning(original, lower string, tier model.Complexity) string {
	var reasons []string

	if anyRegex(a.simple, lower) {
		reasons = append(reasons, "simple definitional query")
	}
	if anyRegex(a.complex, lower) {
		reasons = append(reasons, "requires comparison or latest information")
	}
	if anyRegex(a.deepResearch, lower) {
		reasons = append(reasons, "comprehensive analysis requested")
	}
	if countSubstr(a.controversy, lower) > 0 {
		reasons = append(reasons, "controversial topic requiring multiple perspectives")
	}
	if countSubstr(a.multiEntity, lower) > 0 {
		reasons = append(reasons, "multiple entities or concepts to compare")
	}

	wordCount := len(strings.Fields(original))
	if wordCount > 20 {
		reasons = append(reasons, fmt.Sprintf("long query (%d words)", wordCount))
	} else if wordCount < 5 {
		reasons = append(reasons, fmt.Sprintf("short query (%d words)", wordCount))
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "standard informational query")
	}

	return fmt.Sprintf("%s query: %s", tier.Title(), strings.Join(reasons, ", "))
}

func anyRegex(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func countRegex(patterns []*regexp.Regexp, s string) int {
	n := 0
	for _, re := range patterns {
		if re.MatchString(s) {
			n++
		}
	}
	return n
}

func countSubstr(keywords []string, s string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			n++
		}
	}
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
