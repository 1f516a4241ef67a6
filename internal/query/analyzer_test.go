package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/factrank/internal/model"
)

func TestAnalyze_Scenarios(t *testing.T) {
	a := NewAnalyzer()

	simple := a.Analyze("What is Python?")
	assert.Equal(t, model.ComplexitySimple, simple.Complexity)
	assert.GreaterOrEqual(t, simple.NumSources, 3)
	assert.LessOrEqual(t, simple.NumSources, 5)
	assert.Equal(t, "Simple query: simple definitional query, short query (3 words)", simple.Reasoning)
	assert.InDelta(t, 0.6, simple.Confidence, 1e-9)

	deep := a.Analyze("Comprehensive analysis of COVID-19 vaccines")
	assert.Equal(t, model.ComplexityDeepResearch, deep.Complexity)
	assert.GreaterOrEqual(t, deep.NumSources, 15)
	assert.LessOrEqual(t, deep.NumSources, 25)
	assert.Contains(t, deep.Reasoning, "Deep Research query: ")
	assert.Contains(t, deep.Reasoning, "comprehensive analysis requested")
	assert.Contains(t, deep.Reasoning, "controversial topic requiring multiple perspectives")
}

func TestAnalyze_NumSourcesAlwaysInRange(t *testing.T) {
	a := NewAnalyzer()
	queries := []string{
		"",
		"   ",
		"?",
		"go",
		"define entropy",
		"compare postgres versus mysql pros and cons for analytics workloads",
		"Is it true that vaccines cause autism? Really? Actually? What does the evidence say?",
		strings.Repeat("comprehensive exhaustive thorough in-depth everything about ", 20),
		strings.Repeat("supercalifragilistic ", 100),
	}

	for _, q := range queries {
		got := a.Analyze(q)
		assert.GreaterOrEqual(t, got.NumSources, MinSources, q)
		assert.LessOrEqual(t, got.NumSources, MaxSources, q)
		assert.GreaterOrEqual(t, got.ComplexityScore, 0.0, q)
		assert.LessOrEqual(t, got.ComplexityScore, 1.0, q)
		assert.LessOrEqual(t, got.Confidence, 0.95, q)
	}
}

func TestAnalyze_DeepKeywordsNeverDecreaseScore(t *testing.T) {
	a := NewAnalyzer()
	bases := []string{
		"What is Python?",
		"history of the roman empire",
		"latest developments in fusion energy",
		"",
	}
	suffixes := []string{" comprehensive", " exhaustive and thorough", " complete guide", " tell me everything"}

	for _, base := range bases {
		before := a.Analyze(base).ComplexityScore
		for _, suffix := range suffixes {
			after := a.Analyze(base + suffix).ComplexityScore
			assert.GreaterOrEqual(t, after, before, "%q + %q", base, suffix)
		}
	}
}

func TestAnalyze_EmptyQuery(t *testing.T) {
	got := NewAnalyzer().Analyze("")
	assert.Equal(t, model.ComplexitySimple, got.Complexity)
	assert.Equal(t, 3, got.NumSources)
	assert.Equal(t, "Simple query: short query (0 words)", got.Reasoning)
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := NewAnalyzer()
	q := "Compare the latest electric vehicles and their battery technologies"
	assert.Equal(t, a.Analyze(q), a.Analyze(q))
}

func TestAnalyze_StandardReasoning(t *testing.T) {
	got := NewAnalyzer().Analyze("the life cycle of butterflies")
	assert.Equal(t, "Simple query: standard informational query", got.Reasoning)
}

func TestSourcesForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  int
		tier  model.Complexity
	}{
		{0, 3, model.ComplexitySimple},
		{0.24, 4, model.ComplexitySimple},
		{0.25, 5, model.ComplexityMedium},
		{0.49, 7, model.ComplexityMedium},
		{0.5, 8, model.ComplexityComplex},
		{0.74, 14, model.ComplexityComplex},
		{0.75, 15, model.ComplexityDeepResearch},
		{1, 25, model.ComplexityDeepResearch},
	}

	for _, tt := range tests {
		n, tier := sourcesForScore(tt.score)
		assert.Equal(t, tt.want, n, "score %v", tt.score)
		assert.Equal(t, tt.tier, tier, "score %v", tt.score)
	}
}

func TestOptimalSources(t *testing.T) {
	a := NewAnalyzer()
	q := "pros and cons of nuclear power versus solar"
	assert.Equal(t, a.Analyze(q).NumSources, a.OptimalSources(q))
}

func TestComplexityScore_LongWordsCountRunes(t *testing.T) {
	a := NewAnalyzer()

	// seven runes but nine bytes
	assert.InDelta(t, a.complexityScore("xx abcdefg"), a.complexityScore("xx éléphan"), 1e-12)
	assert.InDelta(t, a.complexityScore("xx elephant"), a.complexityScore("xx éléphant"), 1e-12)
	assert.InDelta(t, 0.03, a.complexityScore("xx elephant")-a.complexityScore("xx abcdefg"), 1e-12)
}
