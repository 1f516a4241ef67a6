package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factrank/internal/llm"
	"github.com/ppiankov/factrank/internal/model"
)

type scriptedGenerator struct {
	reply   string
	err     error
	chunks  []string
	prompts []string
}

func (g *scriptedGenerator) Name() string { return "scripted" }
func (g *scriptedGenerator) IsAvailable(context.Context) bool { return true }

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func (g *scriptedGenerator) GenerateStream(_ context.Context, prompt string, onChunk func(string) error) error {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return g.err
	}
	for _, c := range g.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return nil
}

func TestClassifyRules(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantCat Category
	}{
		{"Hello there!", true, CategoryGreeting},
		{"good morning", true, CategoryGreeting},
		{"thanks a lot", true, CategoryAppreciation},
		{"how are you doing today", true, CategoryCasualChat},
		{"ok", true, CategoryCasualChat},
		{"see you tomorrow", true, CategoryFarewell},
		{"what can you do for me", true, CategoryAboutAssistant},
		{"history of the roman empire", false, CategorySearch},
		{"how do I book a flight to Tokyo", false, CategorySearch},
		{"what is a token in NLP", false, CategorySearch},
		{"latest research on protein folding", false, CategorySearch},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, cat := ClassifyRules(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCat, cat)
		})
	}
}

func TestClassifier_ExactMatchesSkipModel(t *testing.T) {
	gen := &scriptedGenerator{reply: "SEARCH"}
	c := NewClassifier(gen, 0)

	ok, cat := c.Classify(context.Background(), " Thanks ")
	assert.True(t, ok)
	assert.Equal(t, CategoryAppreciation, cat)
	assert.Empty(t, gen.prompts)
}

func TestClassifier_UsesModel(t *testing.T) {
	gen := &scriptedGenerator{reply: "CONVERSATIONAL"}
	c := NewClassifier(gen, 0)

	ok, cat := c.Classify(context.Background(), "could you introduce yourself please")
	assert.True(t, ok)
	assert.Equal(t, CategoryAboutAssistant, cat)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "could you introduce yourself please")

	gen.reply = "search"
	ok, cat = c.Classify(context.Background(), "ok so what is the boiling point of water")
	assert.False(t, ok)
	assert.Equal(t, CategorySearch, cat)
}

func TestClassifier_ModelErrorFallsBackToRules(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("rate limited")}
	c := NewClassifier(gen, 0)

	ok, cat := c.Classify(context.Background(), "goodbye for now")
	assert.True(t, ok)
	assert.Equal(t, CategoryFarewell, cat)
}

func TestClassifier_MockUsesRules(t *testing.T) {
	c := NewClassifier(llm.NewMockProvider(), 0)
	assert.Nil(t, c.gen)

	ok, _ := c.Classify(context.Background(), "what is quantum tunneling")
	assert.False(t, ok)
}

func TestFormatFacts(t *testing.T) {
	facts := []model.Fact{
		{Idx: 1, Subject: "water", Predicate: "boils at", Object: "100C", SourceURL: "https://nasa.gov/water", TruthWeight: model.Float64Ptr(0.9)},
		{Subject: "ice", Predicate: "melts at", Object: "0C"},
	}
	got := FormatFacts(facts)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[1] (0.90) [boils at] water -> 100C | https://nasa.gov/water", lines[0])
	assert.Equal(t, "[-] (0.50) [melts at] ice -> 0C | ", lines[1])
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("be brief", "why is the sky blue", []model.Fact{{Idx: 1, Subject: "sky", Predicate: "is", Object: "blue"}})
	assert.True(t, strings.HasPrefix(p, "System:\nbe brief\n\nUser question:\nwhy is the sky blue\n\nFacts (verbatim):\n[1]"))
	assert.Contains(t, p, "Cite inline with [n]")
}

func answerFixture(t *testing.T, gen llm.Generator) *Answerer {
	t.Helper()
	src := &fakeSource{name: "web", facts: sameTextFacts(4)}
	r := newTestRetriever(t, RetrieverDeps{Sources: []Source{src}}, lexicalOnly())
	return NewAnswerer(r, gen, nil, nil)
}

func TestAnswer_WithMock(t *testing.T) {
	a := answerFixture(t, llm.NewMockProvider())

	ans, err := a.Answer(context.Background(), "when was go 1.25 released", 3)
	require.NoError(t, err)
	assert.False(t, ans.Conversational)
	assert.Equal(t, CategorySearch, ans.Category)
	require.Len(t, ans.Facts, 3)
	require.NotNil(t, ans.Retrieval)
	assert.Contains(t, ans.Text, "Based on the 3 sources found")
	assert.Contains(t, ans.Text, "[1] (0.50) [released] go -> version 1.25")
}

func TestAnswer_Conversational(t *testing.T) {
	a := answerFixture(t, nil)

	ans, err := a.Answer(context.Background(), "hi", 3)
	require.NoError(t, err)
	assert.True(t, ans.Conversational)
	assert.Equal(t, CategoryGreeting, ans.Category)
	assert.Empty(t, ans.Facts)
	assert.Nil(t, ans.Retrieval)
	assert.Equal(t, ConversationalResponse(CategoryGreeting), ans.Text)
}

func TestAnswer_NoGenerator(t *testing.T) {
	a := answerFixture(t, nil)

	_, err := a.Answer(context.Background(), "what is the speed of light", 3)
	assert.ErrorIs(t, err, model.ErrCapabilityUnavailable)
}

func TestAnswer_GeneratorError(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("quota exceeded")}
	a := answerFixture(t, gen)

	// The classifier call fails too and falls back to rules
	_, err := a.Answer(context.Background(), "what is the speed of light", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestAnswerStream_FactsThenChunks(t *testing.T) {
	gen := &scriptedGenerator{reply: "SEARCH", chunks: []string{"Go 1.25 ", "shipped [1]."}}
	a := answerFixture(t, gen)

	var events []string
	var gotFacts []model.Fact
	err := a.AnswerStream(context.Background(), "when did go 1.25 ship", 2,
		func(f []model.Fact) error {
			gotFacts = f
			events = append(events, "facts")
			return nil
		},
		func(c string) error {
			events = append(events, c)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"facts", "Go 1.25 ", "shipped [1]."}, events)
	assert.Len(t, gotFacts, 2)
}

func TestAnswerStream_Conversational(t *testing.T) {
	a := answerFixture(t, nil)

	var chunks []string
	var factCalls int
	err := a.AnswerStream(context.Background(), "bye", 2,
		func(f []model.Fact) error {
			factCalls++
			assert.Empty(t, f)
			return nil
		},
		func(c string) error {
			chunks = append(chunks, c)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 1, factCalls)
	assert.Equal(t, []string{ConversationalResponse(CategoryFarewell)}, chunks)
}

func TestAnswerStream_CallbackErrorStops(t *testing.T) {
	gen := &scriptedGenerator{reply: "SEARCH", chunks: []string{"a", "b"}}
	a := answerFixture(t, gen)

	stop := errors.New("client gone")
	var n int
	err := a.AnswerStream(context.Background(), "what is go", 2,
		func([]model.Fact) error { return nil },
		func(string) error {
			n++
			return stop
		})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}
