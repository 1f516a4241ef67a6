package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/factrank/internal/query"
	"github.com/ppiankov/factrank/internal/reputation"
)

var (
	analyzeJSON bool
	domainJSON  bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <query>",
	Short: "Show how many sources a query needs",
	Long: `Classify a query as simple, moderate, complex or very complex and
print the number of sources retrieval would fetch for it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := query.NewAnalyzer().Analyze(strings.Join(args, " "))
		if analyzeJSON {
			return printJSON(a)
		}
		fmt.Printf("Complexity: %s\n", a.Complexity)
		fmt.Printf("Score:      %.3f\n", a.ComplexityScore)
		fmt.Printf("Sources:    %d\n", a.NumSources)
		fmt.Printf("Confidence: %.2f\n", a.Confidence)
		fmt.Printf("Reasoning:  %s\n", a.Reasoning)
		return nil
	},
}

// domainCmd represents the domain command
var domainCmd = &cobra.Command{
	Use:   "domain <url>...",
	Short: "Explain the reputation score of source URLs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		scorer, err := reputation.NewScorer(cfg.Reputation)
		if err != nil {
			return err
		}

		for _, u := range args {
			e := scorer.Explain(u)
			if domainJSON {
				if err := printJSON(e); err != nil {
					return err
				}
				continue
			}
			fmt.Printf("%s\n  score %.2f  recency %.2f  %s: %s\n", e.URL, e.DomainScore, e.RecencyWeight, e.Category, e.Reason)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(domainCmd)
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print JSON")
	domainCmd.Flags().BoolVar(&domainJSON, "json", false, "print JSON")
}
