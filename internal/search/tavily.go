package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ppiankov/factrank/internal/model"
)

const tavilyURL = "https://api.tavily.com/search"

// Tavily queries the Tavily search API
type Tavily struct {
	req     *requester
	apiKey  string
	baseURL string
}

// NewTavily creates a Tavily provider
func NewTavily(r *requester, apiKey string) *Tavily {
	return &Tavily{req: r, apiKey: apiKey, baseURL: tavilyURL}
}

func (t *Tavily) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

func (t *Tavily) Search(ctx context.Context, query string, n int) ([]model.SearchResult, error) {
	n = resultLimit(n)
	payload, err := json.Marshal(tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		SearchDepth: "advanced",
		MaxResults:  n,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := t.req.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}

	var resp tavilyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	var results []model.SearchResult
	for _, item := range resp.Results {
		if item.URL == "" || len(results) >= n {
			continue
		}
		ts := ExtractDate(item.PublishedDate)
		if ts == "" {
			ts = ExtractDate(item.Content)
		}
		results = append(results, model.SearchResult{
			Title:     item.Title,
			URL:       item.URL,
			Snippet:   item.Content,
			Source:    hostOf(item.URL),
			Timestamp: ts,
		})
	}
	return results, nil
}
