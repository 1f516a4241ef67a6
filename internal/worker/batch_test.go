package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/factrank/internal/model"
)

type mockIngester struct {
	failURL string
}

func (m *mockIngester) IngestURL(ctx context.Context, url string) (*model.IngestResult, error) {
	time.Sleep(5 * time.Millisecond)
	if url == m.failURL {
		return nil, errors.New("fetch failed")
	}
	return &model.IngestResult{URL: url, Paragraphs: 3, Added: 2, Duplicates: 1}, nil
}

func writeURLFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessURLs(t *testing.T) {
	processor := NewBatchProcessor(&mockIngester{failURL: "http://bad.example"}, 2)
	urls := []string{"http://a.example", "http://bad.example", "http://c.example"}

	results, stats := processor.ProcessURLs(context.Background(), urls)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.URL != urls[i] {
			t.Errorf("result %d URL = %s, want %s", i, r.URL, urls[i])
		}
	}
	if results[1].GetError() == nil {
		t.Error("expected error for failing URL")
	}

	want := model.IngestStats{Pages: 2, Failed: 1, Paragraphs: 6, Added: 4, Duplicates: 2}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestBatchProcessor_ProcessURLs_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, stats := NewBatchProcessor(&mockIngester{}, 1).ProcessURLs(ctx, []string{"http://a.example", "http://b.example"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if stats.Pages+stats.Failed != 2 {
		t.Errorf("every URL should be accounted for, got %+v", stats)
	}
}

func TestBatchProcessor_ProcessURLs_Empty(t *testing.T) {
	results, stats := NewBatchProcessor(&mockIngester{}, 2).ProcessURLs(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
	if stats != (model.IngestStats{}) {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestReadURLsFromFile(t *testing.T) {
	path := writeURLFile(t, "http://example.com\n# comment\nhttps://go.dev\n   \nhttp://example.com\nhttp://arxiv.org   ")

	urls, err := ReadURLsFromFile(path)
	if err != nil {
		t.Fatalf("ReadURLsFromFile failed: %v", err)
	}

	expected := []string{"http://example.com", "https://go.dev", "http://arxiv.org"}
	if len(urls) != len(expected) {
		t.Fatalf("expected %d URLs, got %d: %v", len(expected), len(urls), urls)
	}
	for i, url := range urls {
		if url != expected[i] {
			t.Errorf("expected URL %s at index %d, got %s", expected[i], i, url)
		}
	}
}

func TestReadURLsFromFile_NonExistent(t *testing.T) {
	if _, err := ReadURLsFromFile("non_existent_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeURLFile(t, "http://example.com\nhttps://go.dev\n# comment\n\nhttp://arxiv.org\n")

	results, stats, err := NewBatchProcessor(&mockIngester{}, 2).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
	if stats.Added != 6 {
		t.Errorf("expected 6 added facts, got %d", stats.Added)
	}

	if _, _, err := NewBatchProcessor(&mockIngester{}, 2).ProcessFile(context.Background(), "no_such_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}
