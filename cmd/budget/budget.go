// Package budget handles the budget command, which shows suggested limits and
// month-to-date tracking.
package budget

import (
	"fmt"
	"io"

	"fjacquet/fin-insights/cmd/common"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/pipeline"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// View is the output of the budget command.
type View struct {
	RunID    string                  `json:"run_id" yaml:"run_id"`
	AsOf     string                  `json:"as_of" yaml:"as_of"`
	Budgets  []models.Budget         `json:"budgets" yaml:"budgets"`
	Tracking []models.TrackingResult `json:"tracking" yaml:"tracking"`
	Trends   []models.CategoryTrend  `json:"trends" yaml:"trends"`
}

// Cmd represents the budget command
var Cmd = &cobra.Command{
	Use:   "budget",
	Short: "Show suggested budgets and month-to-date tracking",
	Long: `Budget suggests a monthly limit per category from the trailing average
spend reduced by the savings rate, and compares this month's spend with the
prorated limit.`,
	RunE: budgetFunc,
}

func budgetFunc(cmd *cobra.Command, args []string) error {
	rep, err := common.Run(cmd.Context())
	if err != nil {
		return err
	}
	if rep.IsDegraded(pipeline.ModuleBudget) {
		return fmt.Errorf("budget results are not available for this run")
	}
	view := View{
		RunID:    rep.RunID,
		AsOf:     rep.AsOf.Format(models.DateLayout),
		Budgets:  rep.Budgets,
		Tracking: rep.Tracking,
		Trends:   rep.Trends,
	}
	return common.Print(cmd, view, func(w io.Writer) error {
		common.Heading.Fprintf(w, "Budgets as of %s\n", view.AsOf)
		if len(view.Tracking) == 0 {
			fmt.Fprintln(w, "No spending history yet.")
			return nil
		}
		tw := common.Table(w)
		fmt.Fprintln(tw, "CATEGORY\tLIMIT\tSPENT\tPRORATED\tUSED\tSTATUS")
		for _, t := range view.Tracking {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%%\t%s\n",
				t.Category,
				models.FormatMoney(t.Limit),
				models.FormatMoney(t.Spent),
				models.FormatMoney(t.ProratedLimit),
				t.PercentUsed.StringFixed(0),
				statusColor(t.Status).Sprint(t.Status))
		}
		return tw.Flush()
	})
}

func statusColor(s models.BudgetStatus) *color.Color {
	switch s {
	case models.StatusOverLimit, models.StatusPacingOver:
		return common.Alert
	case models.StatusWatch:
		return common.Warning
	case models.StatusOnTrack:
		return common.OK
	default:
		return color.New()
	}
}
