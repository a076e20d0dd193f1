// Package forecast handles the forecast command.
package forecast

import (
	"fmt"
	"io"

	"fjacquet/fin-insights/cmd/common"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/pipeline"

	"github.com/spf13/cobra"
)

// Cmd represents the forecast command
var Cmd = &cobra.Command{
	Use:   "forecast",
	Short: "Project the account balance",
	Long: `Forecast projects the balance at each configured horizon from the trailing
average daily net flow, minus the known recurring charges falling due. The
pessimistic balance assumes a one-sided 95% bad outcome per day.`,
	RunE: forecastFunc,
}

func forecastFunc(cmd *cobra.Command, args []string) error {
	rep, err := common.Run(cmd.Context())
	if err != nil {
		return err
	}
	if rep.IsDegraded(pipeline.ModuleForecast) || rep.Forecast == nil {
		return fmt.Errorf("forecast results are not available for this run")
	}
	f := rep.Forecast
	return common.Print(cmd, f, func(w io.Writer) error {
		common.Heading.Fprintf(w, "Balance %s on %s\n", models.FormatMoney(f.CurrentBalance), f.AsOf.Format(models.DateLayout))
		fmt.Fprintf(w, "Average daily net %.2f over %d days\n", f.AvgDailyNet, f.SampleDays)
		if f.Insufficient {
			common.Warning.Fprintln(w, "Short history: projections are low confidence.")
		}
		tw := common.Table(w)
		fmt.Fprintln(tw, "HORIZON\tDATE\tPROJECTED\tPESSIMISTIC\tRECURRING\tCONFIDENCE")
		for _, p := range f.Points {
			pess := models.FormatMoney(p.PessimisticBalance)
			if p.PessimisticBalance.IsNegative() {
				pess = common.Alert.Sprint(pess)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				p.HorizonLabel, p.Date.Format(models.DateLayout),
				models.FormatMoney(p.ProjectedBalance), pess,
				models.FormatMoney(p.RecurringDeducted), p.Tier)
		}
		return tw.Flush()
	})
}
