package embed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/factrank/internal/model"
)

const defaultOllamaBaseURL = "http://localhost:11434/v1"

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. Ollama
// serves the same API under /v1.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIEmbedder creates an embedder for the openai or ollama provider
func NewOpenAIEmbedder(cfg model.EmbeddingConfig) (*OpenAIEmbedder, error) {
	apiKey := cfg.APIKey
	baseURL := cfg.BaseURL

	if strings.ToLower(cfg.Provider) == "ollama" {
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
		if apiKey == "" {
			apiKey = "ollama"
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: embedding API key is required", model.ErrInvalidConfig)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	name := cfg.Model
	if name == "" {
		name = string(openai.SmallEmbedding3)
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   name,
		timeout: timeout,
	}, nil
}

// Embed implements Embedder
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding API error: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding API returned out of range index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
