package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/factrank/internal/dedup"
)

var dedupJSON bool

// dedupReport is the JSON output of the dedup command
type dedupReport struct {
	Paragraphs int          `json:"paragraphs"`
	Unique     int          `json:"unique"`
	Duplicates []dedupMatch `json:"duplicates"`
	Stats      dedup.Stats  `json:"stats"`
}

type dedupMatch struct {
	Paragraph int    `json:"paragraph"` // 1-based
	Of        string `json:"of"`        // Content hash of the stored paragraph
	Preview   string `json:"preview"`
}

// dedupCmd represents the dedup command
var dedupCmd = &cobra.Command{
	Use:   "dedup <file>",
	Short: "Report duplicate paragraphs in a text file",
	Long: `Split a text file into paragraphs on blank lines and report every
paragraph that exactly or nearly duplicates an earlier one, using the
dedup settings from the configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: runDedup,
}

func init() {
	rootCmd.AddCommand(dedupCmd)
	dedupCmd.Flags().BoolVar(&dedupJSON, "json", false, "print JSON")
}

func runDedup(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	d := dedup.New(cfg.Dedup)

	report := dedupReport{}
	for _, p := range splitParagraphs(string(data)) {
		report.Paragraphs++
		if dup, fp := d.IsDuplicate(p); dup {
			report.Duplicates = append(report.Duplicates, dedupMatch{
				Paragraph: report.Paragraphs,
				Of:        fp.ContentHash,
				Preview:   preview(p, 60),
			})
			continue
		}
		d.Add(p, args[0], "")
		report.Unique++
	}
	report.Stats = d.Stats()

	if dedupJSON {
		return printJSON(report)
	}
	for _, m := range report.Duplicates {
		fmt.Printf("✗ paragraph %d duplicates %s: %s\n", m.Paragraph, m.Of[:12], m.Preview)
	}
	fmt.Printf("\n%d paragraphs, %d unique, %d duplicates (threshold %.2f, approximate=%t)\n",
		report.Paragraphs, report.Unique, len(report.Duplicates), report.Stats.Threshold, report.Stats.ApproximateMatchingEnabled)
	return nil
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		if p := strings.Join(strings.Fields(block), " "); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
