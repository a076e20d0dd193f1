// Package goal handles the goal command, which plans the monthly contribution
// towards a savings target.
package goal

import (
	"errors"
	"fmt"
	"io"
	"time"

	"fjacquet/fin-insights/cmd/common"
	"fjacquet/fin-insights/cmd/root"
	"fjacquet/fin-insights/internal/dateutils"
	"fjacquet/fin-insights/internal/forecast"
	"fjacquet/fin-insights/internal/goal"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/pipeline"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	name     string
	target   string
	progress string
	by       string
	months   int
)

// Cmd represents the goal command
var Cmd = &cobra.Command{
	Use:   "goal",
	Short: "Plan the savings needed to reach a target",
	Long: `Goal computes the monthly contribution that reaches --target by --by (or
within --months), adds a safety buffer derived from the forecast volatility and
checks it against the average monthly disposable income.`,
	RunE: goalFunc,
}

func init() {
	Cmd.Flags().StringVar(&name, "name", "", "Name of the goal")
	Cmd.Flags().StringVar(&target, "target", "", "Target amount")
	Cmd.Flags().StringVar(&progress, "progress", "0", "Amount already saved")
	Cmd.Flags().StringVar(&by, "by", "", "Target date (YYYY-MM-DD)")
	Cmd.Flags().IntVar(&months, "months", 0, "Months from the analysis day, instead of --by")
	_ = Cmd.MarkFlagRequired("target")
}

func goalFunc(cmd *cobra.Command, args []string) error {
	amount, err := decimal.NewFromString(target)
	if err != nil {
		return fmt.Errorf("invalid --target %q: %w", target, err)
	}
	saved, err := decimal.NewFromString(progress)
	if err != nil {
		return fmt.Errorf("invalid --progress %q: %w", progress, err)
	}
	if by == "" && months <= 0 {
		return errors.New("either --by or --months is required")
	}

	rep, err := common.Run(cmd.Context())
	if err != nil {
		return err
	}
	if rep.IsDegraded(pipeline.ModuleForecast) {
		return fmt.Errorf("forecast results are not available for this run")
	}
	projection := forecast.Result{AsOf: dateutils.Day(time.Now()), Insufficient: true}
	if rep.Forecast != nil {
		projection = *rep.Forecast
	}

	targetDate := dateutils.ShiftMonths(projection.AsOf, months)
	if by != "" {
		if targetDate, err = time.Parse(models.DateLayout, by); err != nil {
			return fmt.Errorf("invalid --by %q: expected YYYY-MM-DD", by)
		}
	}

	plan, err := goal.Plan(models.Goal{Name: name, Target: amount, Progress: saved, TargetDate: targetDate},
		projection, goal.Options{Today: projection.AsOf, BufferRatio: root.Config().Goal.BufferRatio})
	if err != nil {
		return err
	}

	return common.Print(cmd, plan, func(w io.Writer) error {
		title := plan.Goal.Name
		if title == "" {
			title = "Goal"
		}
		common.Heading.Fprintf(w, "%s: %s by %s\n", title, models.FormatMoney(plan.Goal.Target), plan.Goal.TargetDate.Format(models.DateLayout))
		fmt.Fprintf(w, "Remaining %s over %d months\n", models.FormatMoney(plan.RemainingAmount), plan.RemainingMonths)
		fmt.Fprintf(w, "Save %s per month (%s with a %s buffer)\n",
			models.FormatMoney(plan.MonthlyTarget), models.FormatMoney(plan.SafeTarget), models.FormatMoney(plan.Buffer))
		if plan.Feasible {
			common.OK.Fprintf(w, "Feasible with a disposable income of %s per month.\n", models.FormatMoney(plan.DisposableIncome))
		} else {
			common.Alert.Fprintf(w, "Not feasible with a disposable income of %s per month.\n", models.FormatMoney(plan.DisposableIncome))
		}
		if plan.LowConfidence {
			common.Warning.Fprintln(w, "Based on a short history.")
		}
		return nil
	})
}
