package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ppiankov/factrank/internal/llm"
)

// Category labels a conversational message
type Category string

const (
	CategoryGreeting       Category = "greeting"
	CategoryAppreciation   Category = "appreciation"
	CategoryFarewell       Category = "farewell"
	CategoryAboutAssistant Category = "about_assistant"
	CategoryCasualChat     Category = "casual_chat"
	CategorySearch         Category = "search"
)

var (
	exactGreetings = []string{"hi", "hello", "hey", "yo"}
	exactThanks    = []string{"thanks", "thank you", "thx", "ty"}
	exactBye       = []string{"bye", "goodbye", "cya"}

	ruleGreetings      = []string{"hi", "hello", "hey", "greetings", "good morning", "good afternoon", "good evening", "howdy", "sup", "what's up", "yo"}
	ruleAppreciations  = []string{"thanks", "thank you", "thx", "ty", "appreciate it", "awesome", "great", "cool", "nice", "perfect", "excellent", "amazing"}
	ruleCasual         = []string{"how are you", "how r u", "wassup", "whats good", "hows it going", "ok", "okay"}
	ruleFarewells      = []string{"bye", "goodbye", "see you", "later", "cya", "good night"}
	ruleAboutAssistant = []string{
		"who are you", "what are you", "tell me about yourself", "what can you do",
		"your capabilities", "introduce yourself", "what do you do", "what exactly do you do",
		"how are you different", "difference between you", "whats the difference",
		"compare yourself", "why use you", "what makes you special", "how do you work",
	}
)

const classifyPrompt = `You are a query classifier. Determine if the user's message is:
1. CONVERSATIONAL - greetings, thanks, casual chat, questions about you as an assistant, farewells
2. SEARCH - questions requiring factual information, explanations, current events, how-to, etc.

Examples:
- "Hi" -> CONVERSATIONAL
- "Thanks!" -> CONVERSATIONAL
- "How are you?" -> CONVERSATIONAL
- "Who are you?" -> CONVERSATIONAL
- "What can you do?" -> CONVERSATIONAL
- "What is Python?" -> SEARCH
- "How does photosynthesis work?" -> SEARCH
- "Who is the president?" -> SEARCH
- "Latest news on AI" -> SEARCH

User message: "%s"

Respond with ONLY ONE WORD: either "CONVERSATIONAL" or "SEARCH"`

var responses = map[Category]string{
	CategoryGreeting:       "Hello! I search the web in real time and answer with citations from sources I can rank for trust. What would you like to know?",
	CategoryAppreciation:   "You're welcome. Ask me anything else and I'll look it up.",
	CategoryFarewell:       "Goodbye! Come back anytime you need an answer.",
	CategoryAboutAssistant: "I'm factrank, a search assistant. For every question I gather candidate facts from web search and a local fact store, score each source for domain reputation, corroboration and recency, rank them with lexical and semantic signals, and answer only from the top facts with inline [n] citations.",
	CategoryCasualChat:     "Doing well, thanks. I'm ready to look something up for you. What's your question?",
}

// Classifier separates small talk from questions that need retrieval
type Classifier struct {
	gen     llm.Generator
	timeout time.Duration
}

// NewClassifier creates a classifier. The generator is consulted only when
// it is a real model; nil or the mock falls back to rules.
func NewClassifier(gen llm.Generator, timeout time.Duration) *Classifier {
	if gen != nil && llm.IsMock(gen) {
		gen = nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Classifier{gen: gen, timeout: timeout}
}

// Classify reports whether q is conversational and its category.
// Obvious one-word messages never reach the model, and model failures
// fall back to the rule tables.
func (c *Classifier) Classify(ctx context.Context, q string) (bool, Category) {
	lower := strings.ToLower(strings.TrimSpace(q))

	switch {
	case contains(exactGreetings, lower):
		return true, CategoryGreeting
	case contains(exactThanks, lower):
		return true, CategoryAppreciation
	case contains(exactBye, lower):
		return true, CategoryFarewell
	}

	if c.gen == nil {
		return ClassifyRules(lower)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out, err := c.gen.Generate(callCtx, fmt.Sprintf(classifyPrompt, q))
	if err != nil {
		return ClassifyRules(lower)
	}
	if strings.Contains(strings.ToUpper(out), "CONVERSATIONAL") {
		return true, subCategory(lower)
	}
	return false, CategorySearch
}

// ClassifyRules is the keyword classifier used without a model. Phrases
// match on word boundaries so "ok" does not match "book".
func ClassifyRules(q string) (bool, Category) {
	lower := strings.ToLower(strings.TrimSpace(q))
	words := padWords(lower)

	for _, p := range ruleGreetings {
		if strings.HasPrefix(words, " "+p+" ") && len(lower) < 30 {
			return true, CategoryGreeting
		}
	}
	for _, p := range ruleAppreciations {
		if hasPhrase(words, p) && len(lower) < 40 {
			return true, CategoryAppreciation
		}
	}
	for _, p := range ruleCasual {
		if hasPhrase(words, p) {
			return true, CategoryCasualChat
		}
	}
	for _, p := range ruleFarewells {
		if hasPhrase(words, p) && len(lower) < 30 {
			return true, CategoryFarewell
		}
	}
	for _, p := range ruleAboutAssistant {
		if hasPhrase(words, p) {
			return true, CategoryAboutAssistant
		}
	}
	return false, CategorySearch
}

func subCategory(lower string) Category {
	words := padWords(lower)
	switch {
	case anyPhrase(words, "hi", "hello", "hey", "good morning", "good afternoon", "good evening", "greetings"):
		return CategoryGreeting
	case anyPhrase(words, "thanks", "thank you", "thx", "appreciate"):
		return CategoryAppreciation
	case anyPhrase(words, "bye", "goodbye", "see you", "later", "cya", "good night"):
		return CategoryFarewell
	case anyPhrase(words, ruleAboutAssistant...):
		return CategoryAboutAssistant
	default:
		return CategoryCasualChat
	}
}

// ConversationalResponse returns the canned reply for a category
func ConversationalResponse(c Category) string {
	if r, ok := responses[c]; ok {
		return r
	}
	return "Ask me anything and I'll search for an answer with sources."
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func anyPhrase(words string, phrases ...string) bool {
	for _, p := range phrases {
		if hasPhrase(words, p) {
			return true
		}
	}
	return false
}

// padWords splits on punctuation and pads with spaces for phrase matching
func padWords(s string) string {
	return " " + strings.Join(strings.FieldsFunc(s, isSeparator), " ") + " "
}

func hasPhrase(words, phrase string) bool {
	return strings.Contains(words, " "+phrase+" ")
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
}
