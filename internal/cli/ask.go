package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/pipeline"
)

var (
	askK      int
	askStream bool
	askJSON   bool
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from ranked facts",
	Long: `Retrieve and rank facts for the question, then ask the configured LLM
to answer using only those facts with [n] citations.

Greetings and small talk are answered directly without retrieval.

Examples:
  factrank ask "when was the transformer paper published"
  factrank ask --stream "how does raft elect a leader"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVarP(&askK, "k", "k", 0, "number of facts (0 lets the query analyzer decide)")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "stream the answer as it is generated")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the answer and facts as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	q := strings.Join(args, " ")

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if askStream && !askJSON {
		var facts []model.Fact
		err := a.Answerer.AnswerStream(cmd.Context(), q, askK,
			func(fs []model.Fact) error {
				facts = fs
				return nil
			},
			func(chunk string) error {
				_, err := fmt.Fprint(os.Stdout, chunk)
				return err
			},
		)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("answer failed: %w", err)
		}
		printSources(facts)
		return nil
	}

	ans, err := a.Answerer.Answer(cmd.Context(), q, askK)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}
	if askJSON {
		return printJSON(ans)
	}
	fmt.Println(ans.Text)
	printSources(ans.Facts)
	return nil
}

func printSources(facts []model.Fact) {
	if len(facts) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\n═══ Sources ═══\n")
	fmt.Fprint(os.Stderr, pipeline.FormatFacts(facts))
	fmt.Fprintln(os.Stderr)
}
