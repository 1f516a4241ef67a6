package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/worker"
)

var (
	ingestFile        string
	ingestConcurrency int
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [url...]",
	Short: "Fetch pages and store their paragraphs as facts",
	Long: `Fetch each URL, respecting robots.txt and per-host rate limits, extract
its paragraphs and store every paragraph that is not a duplicate of one
already seen.

URLs come from arguments or from a file with one URL per line (lines
starting with # are ignored).

Examples:
  factrank ingest https://go.dev/doc/go1.22
  factrank ingest --file urls.txt --concurrency 5`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "file with one URL per line")
	ingestCmd.Flags().IntVarP(&ingestConcurrency, "concurrency", "c", 0, "concurrent fetches (default: concurrency.ingest_workers)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	urls := args
	if ingestFile != "" {
		fromFile, err := worker.ReadURLsFromFile(ingestFile)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given: pass URLs as arguments or use --file")
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	workers := ingestConcurrency
	if workers <= 0 {
		workers = a.Config.Concurrency.IngestWorkers
	}

	fmt.Fprintf(os.Stderr, "\n═══════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "Ingesting %d URLs (concurrency: %d)\n", len(urls), workers)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════\n\n")

	results, stats := worker.NewBatchProcessor(a.Ingester, workers).ProcessURLs(cmd.Context(), urls)
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.URL, r.Error)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %d paragraphs, %d added, %d duplicates\n",
			r.URL, r.Result.Paragraphs, r.Result.Added, r.Result.Duplicates)
	}

	printIngestSummary(stats)
	if stats.Pages == 0 {
		return fmt.Errorf("all %d URLs failed", stats.Failed)
	}
	return nil
}

func printIngestSummary(stats model.IngestStats) {
	fmt.Fprintf(os.Stderr, "\n═══════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "Ingest Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "Pages:      %d ok, %d failed\n", stats.Pages, stats.Failed)
	fmt.Fprintf(os.Stderr, "Paragraphs: %d\n", stats.Paragraphs)
	fmt.Fprintf(os.Stderr, "Added:      %d\n", stats.Added)
	fmt.Fprintf(os.Stderr, "Duplicates: %d\n", stats.Duplicates)
}
