package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/factrank/internal/model"
)

// Ingester turns one URL into stored facts
type Ingester interface {
	IngestURL(ctx context.Context, url string) (*model.IngestResult, error)
}

// IngestJob ingests a single URL
type IngestJob struct {
	URL      string
	Ingester Ingester
}

// Execute implements Job
func (j *IngestJob) Execute(ctx context.Context) Result {
	res, err := j.Ingester.IngestURL(ctx, j.URL)
	return &URLResult{URL: j.URL, Result: res, Error: err}
}

// URLResult is the outcome of ingesting one URL
type URLResult struct {
	URL    string
	Result *model.IngestResult
	Error  error
}

// GetError implements Result
func (r *URLResult) GetError() error {
	return r.Error
}

// BatchProcessor ingests many URLs concurrently
type BatchProcessor struct {
	ingester    Ingester
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(ingester Ingester, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		ingester:    ingester,
		concurrency: concurrency,
	}
}

// ProcessURLs ingests urls and returns one result per URL in input order.
// URLs skipped because ctx ended carry ctx.Err().
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) ([]*URLResult, model.IngestStats) {
	jobs := make([]Job, len(urls))
	for i, u := range urls {
		jobs[i] = &IngestJob{URL: u, Ingester: b.ingester}
	}

	raw := NewPool(b.concurrency).Run(ctx, jobs)

	var stats model.IngestStats
	out := make([]*URLResult, len(urls))
	for i, r := range raw {
		res, ok := r.(*URLResult)
		if !ok || res == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("ingest of %s did not run", urls[i])
			}
			res = &URLResult{URL: urls[i], Error: err}
		}
		stats.Record(res.Result, res.Error)
		out[i] = res
	}
	return out, stats
}

// ProcessFile reads URLs from a file and ingests them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*URLResult, model.IngestStats, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, model.IngestStats{}, fmt.Errorf("read URLs: %w", err)
	}
	results, stats := b.ProcessURLs(ctx, urls)
	return results, stats, nil
}

// ReadURLsFromFile reads URLs from a file, one per line. Blank lines,
// # comments and repeats are skipped.
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return urls, nil
}
