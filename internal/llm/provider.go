package llm

import (
	"context"

	"github.com/ppiankov/factrank/internal/model"
)

// Generator defines the interface for text generation backends
type Generator interface {
	// Name returns the provider name
	Name() string

	// Generate returns the complete completion for prompt
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream delivers the completion in chunks as they arrive.
	// Returning an error from onChunk stops the stream with that error.
	GenerateStream(ctx context.Context, prompt string, onChunk func(string) error) error

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "mock", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// System prompt sent with every request
	System string

	// Timeout for API requests
	Timeout int // seconds

	MaxTokens   int
	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultSystemPrompt grounds answers in the supplied facts
const DefaultSystemPrompt = "You synthesize a clear, concise answer grounded ONLY in the provided facts. Always be direct, avoid fluff."

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "", // Disabled by default
		System:      DefaultSystemPrompt,
		Timeout:     30,
		MaxTokens:   1000,
		Temperature: 0.3,
	}
}

// ConfigFromModel converts model.LLMConfig and outbound HTTP settings to llm.Config
func ConfigFromModel(cfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	c := DefaultConfig()
	c.Provider = cfg.Provider
	c.Model = cfg.Model
	c.APIKey = cfg.APIKey
	c.BaseURL = cfg.BaseURL
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}
	if cfg.MaxTokens > 0 {
		c.MaxTokens = cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		c.Temperature = cfg.Temperature
	}
	c.HTTPProxy = httpCfg.HTTPProxy
	c.HTTPSProxy = httpCfg.HTTPSProxy
	c.NoProxy = httpCfg.NoProxy
	return c
}

func (c Config) maxTokens() int {
	if c.MaxTokens == 0 {
		return 1000
	}
	return c.MaxTokens
}
