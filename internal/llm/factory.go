package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/factrank/internal/model"
)

// NewGenerator creates a new generator based on configuration
func NewGenerator(config Config) (Generator, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "mock":
		return NewMockProvider(), nil

	case "":
		// No provider configured - return nil (LLM disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: LLM provider %s (supported: openai, anthropic, ollama, mock)", model.ErrUnknownProvider, config.Provider)
	}
}

// IsMock reports whether g is the offline mock generator
func IsMock(g Generator) bool {
	_, ok := g.(*MockProvider)
	return ok
}
