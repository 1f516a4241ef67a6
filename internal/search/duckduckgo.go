package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/factrank/internal/model"
)

const (
	duckDuckGoURL = "https://html.duckduckgo.com/html/"
	browserUA     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// DuckDuckGo scrapes the keyless HTML endpoint
type DuckDuckGo struct {
	req     *requester
	baseURL string
}

// NewDuckDuckGo creates a DuckDuckGo provider
func NewDuckDuckGo(r *requester) *DuckDuckGo {
	return &DuckDuckGo{req: r, baseURL: duckDuckGoURL}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search posts the query form and parses result blocks. Ads are skipped.
func (d *DuckDuckGo) Search(ctx context.Context, query string, n int) ([]model.SearchResult, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", browserUA)

	body, err := d.req.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}

	results, err := parseDuckDuckGo(body, resultLimit(n))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}
	return results, nil
}

func parseDuckDuckGo(body []byte, limit int) ([]model.SearchResult, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var results []model.SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			if !hasClass(n, "result--ad") {
				if r, ok := parseResultBlock(n); ok {
					results = append(results, r)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func parseResultBlock(block *html.Node) (model.SearchResult, bool) {
	titleNode := findFirst(block, func(n *html.Node) bool {
		return n.Data == "a" && hasClass(n, "result__a")
	})
	if titleNode == nil {
		return model.SearchResult{}, false
	}

	title := textContent(titleNode)
	link := decodeDuckDuckGoLink(attr(titleNode, "href"))
	if title == "" || link == "" {
		return model.SearchResult{}, false
	}

	var snippet string
	if s := findFirst(block, func(n *html.Node) bool { return hasClass(n, "result__snippet") }); s != nil {
		snippet = textContent(s)
	}

	source := link
	if s := findFirst(block, func(n *html.Node) bool { return hasClass(n, "result__url") }); s != nil {
		if text := textContent(s); text != "" {
			source = text
		}
	}

	if snippet == "" {
		snippet = title
	}

	return model.SearchResult{
		Title:     title,
		URL:       link,
		Snippet:   snippet,
		Source:    source,
		Timestamp: ExtractDate(snippet + " " + title),
	}, true
}

// decodeDuckDuckGoLink unwraps the /l/?uddg= redirect DuckDuckGo puts in
// front of every result link
func decodeDuckDuckGoLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
