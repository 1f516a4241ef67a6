package query

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/ppiankov/factrank/internal/logging"
)

// Generator produces text from a prompt. Implemented by the llm package.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const expansionPrompt = `You are a query expansion assistant. Given a user question, generate 3-5 alternative phrasings that capture the same information need but use different terminology.

Rules:
- Include synonyms (e.g., "ML" -> "machine learning", "artificial intelligence")
- Expand acronyms (e.g., "NLP" -> "natural language processing")
- Rephrase using related concepts (e.g., "AI ethics" -> "algorithmic fairness", "bias in ML")
- Keep expansions concise (5-15 words each)
- Don't change the core meaning
- Return ONLY the alternative queries, one per line, no numbering or explanation

Original Query: %s

Alternative Queries:`

var acronyms = map[string][]string{
	"ai":   {"artificial intelligence", "AI"},
	"ml":   {"machine learning", "ML"},
	"nlp":  {"natural language processing", "NLP"},
	"llm":  {"large language model", "LLM"},
	"gpt":  {"generative pre-trained transformer", "GPT"},
	"bert": {"bidirectional encoder representations", "BERT"},
	"cv":   {"computer vision", "CV"},
	"rl":   {"reinforcement learning", "RL"},
	"dl":   {"deep learning", "DL"},
	"gan":  {"generative adversarial network", "GAN"},
	"cnn":  {"convolutional neural network", "CNN"},
	"rnn":  {"recurrent neural network", "RNN"},
	"lstm": {"long short-term memory", "LSTM"},
	"sota": {"state of the art", "SOTA"},
	"api":  {"application programming interface", "API"},
	"sdk":  {"software development kit", "SDK"},
	"ui":   {"user interface", "UI"},
	"ux":   {"user experience", "UX"},
	"qa":   {"question answering", "QA"},
	"rag":  {"retrieval augmented generation", "RAG"},
	"kg":   {"knowledge graph", "KG"},
	"geo":  {"generative engine optimization", "GEO"},
}

var synonyms = map[string][]string{
	"model":         {"model", "architecture", "system", "framework"},
	"paper":         {"paper", "article", "publication", "work", "study"},
	"method":        {"method", "approach", "technique", "algorithm"},
	"dataset":       {"dataset", "corpus", "benchmark", "data"},
	"performance":   {"performance", "results", "accuracy", "metrics"},
	"training":      {"training", "learning", "optimization"},
	"inference":     {"inference", "prediction", "generation"},
	"evaluation":    {"evaluation", "testing", "validation", "assessment"},
	"architecture":  {"architecture", "model", "network", "design"},
	"transformer":   {"transformer", "attention mechanism", "self-attention"},
	"embedding":     {"embedding", "representation", "encoding", "vector"},
	"attention":     {"attention", "attention mechanism", "attention weights"},
	"fine-tuning":   {"fine-tuning", "adaptation", "transfer learning"},
	"prompt":        {"prompt", "instruction", "query", "input"},
	"context":       {"context", "background", "information", "knowledge"},
	"hallucination": {"hallucination", "fabrication", "false information"},
	"grounding":     {"grounding", "factual accuracy", "attribution"},
	"citation":      {"citation", "reference", "source", "attribution"},
}

var (
	nonWord       = regexp.MustCompile(`[^\w\s-]`)
	listNumbering = regexp.MustCompile(`^[\d\-\*\.\)]+\s*`)
)

// ExpanderOptions configures query expansion
type ExpanderOptions struct {
	UseLLM      bool
	MaxVariants int           // Including the original query
	Timeout     time.Duration // Per LLM call
	CacheSize   int
}

// Expander rewrites a query into alternative phrasings using acronym and
// synonym tables, optionally augmented by an LLM
type Expander struct {
	gen    Generator
	opts   ExpanderOptions
	cache  *lru.Cache[string, []string]
	logger *zap.Logger
}

// NewExpander builds an expander. gen may be nil, which disables LLM
// expansion regardless of opts.UseLLM.
func NewExpander(gen Generator, opts ExpanderOptions, logger *zap.Logger) (*Expander, error) {
	if opts.MaxVariants <= 0 {
		opts.MaxVariants = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 512
	}

	cache, err := lru.New[string, []string](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create expansion cache: %w", err)
	}

	return &Expander{
		gen:    gen,
		opts:   opts,
		cache:  cache,
		logger: logging.OrNop(logger),
	}, nil
}

// LLMEnabled reports whether LLM expansion will be attempted
func (e *Expander) LLMEnabled() bool {
	return e.opts.UseLLM && e.gen != nil
}

// Expand returns the original query followed by up to MaxVariants-1
// alternatives in lexical order
func (e *Expander) Expand(ctx context.Context, q string) []string {
	if strings.TrimSpace(q) == "" {
		return []string{q}
	}

	seen := map[string]bool{q: true}
	var others []string
	add := func(vs []string) {
		for _, v := range vs {
			if !seen[v] {
				seen[v] = true
				others = append(others, v)
			}
		}
	}

	add(firstN(expandAcronyms(q), 3))
	add(firstN(expandSynonyms(q), 3))
	if e.LLMEnabled() {
		add(e.llmExpand(ctx, q))
	}

	sort.Strings(others)
	result := append([]string{q}, others...)
	return firstN(result, e.opts.MaxVariants)
}

func (e *Expander) llmExpand(ctx context.Context, q string) []string {
	if cached, ok := e.cache.Get(q); ok {
		return cached
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	resp, err := e.gen.Generate(ctx, fmt.Sprintf(expansionPrompt, q))
	if err != nil {
		e.logger.Warn("LLM query expansion failed", zap.String("query", q), zap.Error(err))
		return nil
	}

	variants := ParseExpansions(resp)
	e.cache.Add(q, variants)
	return variants
}

// ParseExpansions extracts one query per line from an LLM response,
// dropping list markers, quotes and fragments of five characters or less
func ParseExpansions(resp string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(resp), "\n") {
		line = strings.TrimSpace(line)
		line = listNumbering.ReplaceAllString(line, "")
		line = strings.Trim(line, `"'`)
		if len(line) > 5 {
			out = append(out, line)
		}
		if len(out) == 5 {
			break
		}
	}
	return out
}

// expandAcronyms substitutes each known acronym with its long form and
// canonical casing. The original query is always the first element.
func expandAcronyms(q string) []string {
	expansions := []string{q}
	seen := map[string]bool{q: true}

	for _, word := range strings.Fields(q) {
		clean := strings.ToLower(nonWord.ReplaceAllString(word, ""))
		variants, ok := acronyms[clean]
		if !ok {
			continue
		}

		var fresh []string
		for _, exp := range expansions {
			for _, v := range variants {
				next := strings.Replace(exp, word, v, 1)
				if next != exp && !seen[next] {
					seen[next] = true
					fresh = append(fresh, next)
				}
			}
		}
		expansions = append(expansions, fresh...)
	}

	return expansions
}

// expandSynonyms swaps known domain terms for up to three synonyms per
// term, capped at ten variants overall
func expandSynonyms(q string) []string {
	expansions := []string{q}
	seen := map[string]bool{q: true}

	for _, word := range strings.Fields(strings.ToLower(q)) {
		clean := nonWord.ReplaceAllString(word, "")
		syns, ok := synonyms[clean]
		if !ok {
			continue
		}

		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(clean) + `\b`)
		var fresh []string
		for _, exp := range expansions {
			for _, syn := range syns {
				if syn == clean {
					continue
				}
				next := pattern.ReplaceAllLiteralString(exp, syn)
				if next != exp && !seen[next] {
					seen[next] = true
					fresh = append(fresh, next)
				}
			}
		}
		expansions = append(expansions, firstN(fresh, 3)...)
	}

	return firstN(expansions, 10)
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
