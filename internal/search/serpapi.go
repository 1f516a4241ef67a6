package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ppiankov/factrank/internal/model"
)

const serpAPIURL = "https://serpapi.com/search"

// SerpAPI queries Google results through SerpAPI
type SerpAPI struct {
	req     *requester
	apiKey  string
	baseURL string
}

// NewSerpAPI creates a SerpAPI provider
func NewSerpAPI(r *requester, apiKey string) *SerpAPI {
	return &SerpAPI{req: r, apiKey: apiKey, baseURL: serpAPIURL}
}

func (s *SerpAPI) Name() string { return "serpapi" }

type serpAPIResponse struct {
	OrganicResults []struct {
		Title         string `json:"title"`
		Link          string `json:"link"`
		Snippet       string `json:"snippet"`
		DisplayedLink string `json:"displayed_link"`
		Date          string `json:"date"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

func (s *SerpAPI) Search(ctx context.Context, query string, n int) ([]model.SearchResult, error) {
	n = resultLimit(n)
	params := url.Values{
		"q":       {query},
		"api_key": {s.apiKey},
		"num":     {strconv.Itoa(n)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := s.req.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}

	var resp serpAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("serpapi: decode response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", resp.Error)
	}

	var results []model.SearchResult
	for _, item := range resp.OrganicResults {
		if item.Link == "" || len(results) >= n {
			continue
		}
		results = append(results, model.SearchResult{
			Title:     item.Title,
			URL:       item.Link,
			Snippet:   item.Snippet,
			Source:    item.DisplayedLink,
			Timestamp: ExtractDate(item.Date + " " + item.Snippet),
		})
	}
	return results, nil
}
