// Package rerank scores (query, document) pairs with a remote
// cross-encoder served over HTTP.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/factrank/internal/model"
)

// Reranker returns one relevance score per document, in input order
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
}

// Client talks to a Cohere/Jina style /rerank endpoint
type Client struct {
	url        string
	model      string
	httpClient *http.Client
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// New creates a rerank client. An empty URL disables reranking and
// returns nil.
func New(cfg model.RerankConfig) *Client {
	if cfg.URL == "" {
		return nil
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:   cfg.URL,
		model: cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Rerank implements Reranker
func (c *Client) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Model: c.model, Query: query, Documents: documents})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("rerank API error (status %d): %s", resp.StatusCode, string(msg))
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	scores := make([]float64, len(documents))
	seen := 0
	for _, r := range decoded.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank API returned out of range index %d", r.Index)
		}
		scores[r.Index] = r.RelevanceScore
		seen++
	}
	if seen != len(documents) {
		return nil, fmt.Errorf("rerank API scored %d of %d documents", seen, len(documents))
	}
	return scores, nil
}
