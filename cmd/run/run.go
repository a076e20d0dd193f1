// Package run handles the run command, which executes a full analytics pass.
package run

import (
	"fmt"
	"io"

	"fjacquet/fin-insights/cmd/common"
	"fjacquet/fin-insights/cmd/root"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/report"

	"github.com/spf13/cobra"
)

var output string

// Cmd represents the run command
var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Run every analytics module once",
	Long: `Run labels the ledger, then computes budgets, anomalies, the balance
forecast and nudges in one pass. With --out the full report is written to a
json or yaml file, picked from the extension.`,
	RunE: runFunc,
}

func init() {
	Cmd.Flags().StringVarP(&output, "out", "o", "", "Write the full report to this file")
}

func runFunc(cmd *cobra.Command, args []string) error {
	rep, err := common.Run(cmd.Context())
	if err != nil {
		return err
	}
	if output != "" {
		if err := report.NewGenerator(root.Log).WriteFile(output, rep); err != nil {
			return err
		}
	}
	return common.Print(cmd, rep, func(w io.Writer) error {
		common.Heading.Fprintf(w, "Run %s as of %s\n", rep.RunID, rep.AsOf.Format(models.DateLayout))
		common.WarnDegraded(w, rep)
		tw := common.Table(w)
		fmt.Fprintf(tw, "Transactions\t%d\n", rep.Transactions)
		fmt.Fprintf(tw, "Labeled\t%d\n", rep.Labeled)
		fmt.Fprintf(tw, "Needs review\t%d\n", rep.NeedsReview)
		fmt.Fprintf(tw, "Budgets\t%d\n", len(rep.Budgets))
		fmt.Fprintf(tw, "Anomalies\t%d\n", len(rep.Anomalies))
		fmt.Fprintf(tw, "Nudges\t%d\n", len(rep.Nudges))
		h := rep.Highlights
		if !h.Month.IsZero() {
			fmt.Fprintf(tw, "%s income\t%s\n", h.Month.Format("2006-01"), models.FormatMoney(h.Income))
			fmt.Fprintf(tw, "%s spend\t%s\n", h.Month.Format("2006-01"), models.FormatMoney(h.Spend))
			if h.TopCategory != "" {
				fmt.Fprintf(tw, "Top category\t%s (%s)\n", h.TopCategory, models.FormatMoney(h.TopCategorySpend))
			}
		}
		if rep.Truncated {
			fmt.Fprintln(tw, "History\ttruncated")
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if output != "" {
			common.OK.Fprintf(w, "Report written to %s\n", output)
		}
		return nil
	})
}
