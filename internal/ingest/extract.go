package ingest

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Paragraph length bounds, in bytes of collapsed text
const (
	MinParagraphLength = 40
	MaxParagraphLength = 2000
)

// Document is the text content of a page
type Document struct {
	Title      string
	Paragraphs []string
}

// Extract parses HTML and collects the title and the text of each <p>,
// skipping navigation chrome and script content
func Extract(htmlContent string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &Document{}
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "nav", "footer", "header", "aside", "form":
				return
			case "title":
				if doc.Title == "" {
					doc.Title = collapse(textOf(n))
				}
				return
			case "p":
				text := collapse(textOf(n))
				if len(text) >= MinParagraphLength && !seen[text] {
					seen[text] = true
					doc.Paragraphs = append(doc.Paragraphs, truncate(text, MaxParagraphLength))
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return doc, nil
}

func textOf(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts at a word boundary at or before limit bytes
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}
