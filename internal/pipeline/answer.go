package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/factrank/internal/llm"
	"github.com/ppiankov/factrank/internal/logging"
	"github.com/ppiankov/factrank/internal/model"
)

const answerTemplate = `System:
%s

User question:
%s

Facts (verbatim):
%s

Instructions:
- Use only these facts; if insufficient, say what else is needed.
- Provide a single paragraph answer (3-6 sentences) with a confident tone.
- Cite inline with [n] where n corresponds to the facts list numbering.
- Do not fabricate sources or data.
`

// Answer is a generated reply with the facts it cites
type Answer struct {
	Text           string           `json:"answer"`
	Facts          []model.Fact     `json:"facts"`
	Conversational bool             `json:"conversational"`
	Category       Category         `json:"category"`
	Retrieval      *RetrievalResult `json:"retrieval,omitempty"`
}

// Answerer retrieves facts and asks the generator to synthesize an answer
type Answerer struct {
	retriever  *Retriever
	gen        llm.Generator
	classifier *Classifier
	system     string
	logger     *zap.Logger
}

// NewAnswerer creates an answerer. gen may be nil, in which case only
// conversational messages can be answered.
func NewAnswerer(r *Retriever, gen llm.Generator, classifier *Classifier, logger *zap.Logger) *Answerer {
	if classifier == nil {
		classifier = NewClassifier(gen, 0)
	}
	return &Answerer{
		retriever:  r,
		gen:        gen,
		classifier: classifier,
		system:     llm.DefaultSystemPrompt,
		logger:     logging.OrNop(logger),
	}
}

// Answer short-circuits small talk, otherwise retrieves k facts (k <= 0
// lets the analyzer decide) and generates a cited answer
func (a *Answerer) Answer(ctx context.Context, q string, k int) (*Answer, error) {
	if ok, cat := a.classifier.Classify(ctx, q); ok {
		return &Answer{Text: ConversationalResponse(cat), Facts: []model.Fact{}, Conversational: true, Category: cat}, nil
	}
	if a.gen == nil {
		return nil, fmt.Errorf("%w: no LLM provider configured", model.ErrCapabilityUnavailable)
	}

	res, err := a.retriever.Retrieve(ctx, q, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	text, err := a.gen.Generate(ctx, BuildPrompt(a.system, q, res.Facts))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &Answer{Text: text, Facts: res.Facts, Category: CategorySearch, Retrieval: res}, nil
}

// AnswerStream delivers the facts first, then the answer in chunks.
// Conversational replies arrive as a single chunk after an empty fact list.
func (a *Answerer) AnswerStream(ctx context.Context, q string, k int, onFacts func([]model.Fact) error, onChunk func(string) error) error {
	if ok, cat := a.classifier.Classify(ctx, q); ok {
		if err := onFacts([]model.Fact{}); err != nil {
			return err
		}
		return onChunk(ConversationalResponse(cat))
	}
	if a.gen == nil {
		return fmt.Errorf("%w: no LLM provider configured", model.ErrCapabilityUnavailable)
	}

	res, err := a.retriever.Retrieve(ctx, q, k)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}
	if err := onFacts(res.Facts); err != nil {
		return err
	}

	if err := a.gen.GenerateStream(ctx, BuildPrompt(a.system, q, res.Facts), onChunk); err != nil {
		a.logger.Warn("answer stream failed", zap.String("provider", a.gen.Name()), zap.Error(err))
		return fmt.Errorf("stream answer: %w", err)
	}
	return nil
}

// BuildPrompt renders the grounded answer prompt
func BuildPrompt(system, q string, facts []model.Fact) string {
	return fmt.Sprintf(answerTemplate, system, q, FormatFacts(facts))
}

// FormatFacts renders one numbered line per fact:
// [n] (tw) [predicate] subject -> object | url
func FormatFacts(facts []model.Fact) string {
	lines := make([]string, len(facts))
	for i, f := range facts {
		n := "-"
		if f.Idx > 0 {
			n = fmt.Sprint(f.Idx)
		}
		lines[i] = fmt.Sprintf("[%s] (%.2f) [%s] %s -> %s | %s",
			n, f.EffectiveTruthWeight(), f.Predicate, f.Subject, f.Object, f.SourceURL)
	}
	return strings.Join(lines, "\n")
}
