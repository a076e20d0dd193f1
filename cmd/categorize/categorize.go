// Package categorize handles transaction categorization commands
package categorize

import (
	"errors"
	"fmt"
	"io"

	"fjacquet/fin-insights/cmd/common"
	"fjacquet/fin-insights/cmd/root"
	"fjacquet/fin-insights/internal/categorizer"
	csvio "fjacquet/fin-insights/internal/common"

	"github.com/spf13/cobra"
)

var (
	input   string
	output  string
	explain bool
	strict  bool
)

// Label is the categorization of one description.
type Label struct {
	Description string  `json:"description" yaml:"description"`
	Category    string  `json:"category" yaml:"category"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
	NeedsReview bool    `json:"needs_review" yaml:"needs_review"`
	Strategy    string  `json:"strategy,omitempty" yaml:"strategy,omitempty"`
}

// Cmd represents the categorize command
var Cmd = &cobra.Command{
	Use:   "categorize [description...]",
	Short: "Categorize transaction descriptions",
	Long: `Categorize labels the given descriptions with the active model, or every
uncategorized row of a CSV file when --input is set. Feedback corrections take
precedence over the model, and the keyword table is used when no model has
been trained yet.`,
	RunE: categorizeFunc,
}

func init() {
	Cmd.Flags().StringVarP(&input, "input", "i", "", "CSV file to categorize")
	Cmd.Flags().StringVarP(&output, "output", "o", "", "CSV file to write (default: overwrite --input)")
	Cmd.Flags().BoolVar(&explain, "explain", false, "Show which strategy produced each label")
	Cmd.Flags().BoolVar(&strict, "strict", false, "Abort on the first malformed row")
}

func categorizeFunc(cmd *cobra.Command, args []string) error {
	if input == "" && len(args) == 0 {
		return errors.New("provide descriptions as arguments or a CSV file with --input")
	}
	c, err := root.Container()
	if err != nil {
		return err
	}
	engine := c.GetEngine()
	minConfidence := root.Config().Categorization.MinConfidence

	if input != "" {
		return categorizeFile(cmd, engine)
	}

	labels := make([]Label, 0, len(args))
	for _, desc := range args {
		l := Label{Description: desc}
		if explain {
			if best, ok := engine.Explain(cmd.Context(), desc).GetBestResult(); ok {
				l.Category, l.Confidence, l.Strategy = best.Prediction.Category, best.Prediction.Confidence, best.Strategy
			}
		} else {
			l.Category, l.Confidence = engine.CategoryOf(desc)
		}
		l.NeedsReview = l.Confidence < minConfidence
		labels = append(labels, l)
	}

	return common.Print(cmd, labels, func(w io.Writer) error {
		tw := common.Table(w)
		fmt.Fprintln(tw, "DESCRIPTION\tCATEGORY\tCONFIDENCE\tSTRATEGY")
		for _, l := range labels {
			conf := fmt.Sprintf("%.0f%%", l.Confidence*100)
			if l.NeedsReview {
				conf += " (review)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.Description, l.Category, conf, l.Strategy)
		}
		return tw.Flush()
	})
}

func categorizeFile(cmd *cobra.Command, engine *categorizer.Engine) error {
	txns, rejected, err := csvio.ReadTransactionsCSV(input, strict, root.Log)
	if err != nil {
		return err
	}
	batch, err := engine.CategorizeBatch(cmd.Context(), txns, categorizer.BatchOptions{Strict: strict, OnlyUncategorized: true})
	if err != nil {
		return err
	}
	dest := output
	if dest == "" {
		dest = input
	}
	if err := csvio.WriteTransactionsToCSV(batch.Transactions, dest, root.Log); err != nil {
		return err
	}

	summary := map[string]interface{}{
		"file":          dest,
		"labeled":       batch.Labeled,
		"needs_review":  batch.NeedsReview,
		"rejected":      len(rejected) + len(batch.Rejected),
		"model_version": batch.ModelVersion,
	}
	return common.Print(cmd, summary, func(w io.Writer) error {
		fmt.Fprintf(w, "Labeled %d transactions (%d need review) into %s.\n", batch.Labeled, batch.NeedsReview, dest)
		return nil
	})
}
