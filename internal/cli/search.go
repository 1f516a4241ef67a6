package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/pipeline"
)

var (
	searchK    int
	searchJSON bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Retrieve and rank facts for a query",
	Long: `Search every configured source for facts about the query, score each
source for trust and rank the candidates by hybrid relevance.

Examples:
  factrank search "latest go release"
  factrank search --k 10 "compare raft and paxos"
  factrank search --json "who invented the transistor"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 0, "number of facts (0 lets the query analyzer decide)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the full retrieval result as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	q := strings.Join(args, " ")

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Retriever.Retrieve(cmd.Context(), q, searchK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(res)
	}
	printRetrieval(q, res)
	return nil
}

func printRetrieval(q string, res *pipeline.RetrievalResult) {
	fmt.Fprintf(os.Stderr, "\n═══════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "Query: %s\n", q)
	if res.Analysis != nil {
		fmt.Fprintf(os.Stderr, "Complexity: %s (%.2f), k=%d\n", res.Analysis.Complexity, res.Analysis.ComplexityScore, res.K)
	}
	fmt.Fprintf(os.Stderr, "Candidates: %d  semantic=%s lexical=%s rerank=%s\n",
		res.Trace.Candidates, res.Trace.Semantic, res.Trace.Lexical, res.Trace.Rerank)
	for _, se := range res.Trace.SourceErrors {
		fmt.Fprintf(os.Stderr, "  ✗ %s (%q): %s\n", se.Source, se.Variant, se.Error)
	}
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════\n\n")

	if len(res.Facts) == 0 {
		fmt.Println("No facts found.")
		return
	}
	for _, f := range res.Facts {
		printFact(f)
	}
}

func printFact(f model.Fact) {
	fmt.Printf("[%d] %.3f  %s\n", f.Idx, f.HybridScore, strings.TrimSpace(f.Subject+" "+f.Predicate))
	fmt.Printf("    %s\n", f.Object)
	if f.SourceURL != "" {
		fmt.Printf("    %s  (domain %.2f, trust %.2f)\n", f.SourceURL, f.DomainScore, f.TrustScore)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
