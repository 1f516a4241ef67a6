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

const (
	googleCSEURL = "https://www.googleapis.com/customsearch/v1"
	googleMaxNum = 10
)

// Google queries the Custom Search JSON API
type Google struct {
	req     *requester
	apiKey  string
	cseID   string
	baseURL string
}

// NewGoogle creates a Google Custom Search provider
func NewGoogle(r *requester, apiKey, cseID string) *Google {
	return &Google{req: r, apiKey: apiKey, cseID: cseID, baseURL: googleCSEURL}
}

func (g *Google) Name() string { return "google" }

type googleResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		DisplayLink string `json:"displayLink"`
	} `json:"items"`
}

// Search asks for at most 10 results, the API's per-request maximum
func (g *Google) Search(ctx context.Context, query string, n int) ([]model.SearchResult, error) {
	n = resultLimit(n)
	if n > googleMaxNum {
		n = googleMaxNum
	}
	params := url.Values{
		"key": {g.apiKey},
		"cx":  {g.cseID},
		"q":   {query},
		"num": {strconv.Itoa(n)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := g.req.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}

	var resp googleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("google: decode response: %w", err)
	}

	var results []model.SearchResult
	for _, item := range resp.Items {
		if item.Link == "" {
			continue
		}
		results = append(results, model.SearchResult{
			Title:     item.Title,
			URL:       item.Link,
			Snippet:   item.Snippet,
			Source:    item.DisplayLink,
			Timestamp: ExtractDate(item.Snippet),
		})
	}
	return results, nil
}
