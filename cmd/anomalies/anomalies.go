// Package anomalies handles the anomalies command.
package anomalies

import (
	"fmt"
	"io"

	"fjacquet/fin-insights/cmd/common"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/pipeline"

	"github.com/spf13/cobra"
)

var limit int

// Cmd represents the anomalies command
var Cmd = &cobra.Command{
	Use:   "anomalies",
	Short: "List unusual transactions",
	Long: `Anomalies lists spending spikes, likely duplicate charges and categories
pacing over their budget, most severe first.`,
	RunE: anomaliesFunc,
}

func init() {
	Cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of flags to show (0 for all)")
}

func anomaliesFunc(cmd *cobra.Command, args []string) error {
	rep, err := common.Run(cmd.Context())
	if err != nil {
		return err
	}
	if rep.IsDegraded(pipeline.ModuleAnomaly) {
		return fmt.Errorf("anomaly results are not available for this run")
	}
	flags := rep.Anomalies
	if limit > 0 && len(flags) > limit {
		flags = flags[:limit]
	}
	return common.Print(cmd, flags, func(w io.Writer) error {
		if len(flags) == 0 {
			common.OK.Fprintln(w, "Nothing unusual found.")
			return nil
		}
		common.Heading.Fprintf(w, "%d of %d anomalies\n", len(flags), len(rep.Anomalies))
		tw := common.Table(w)
		fmt.Fprintln(tw, "DATE\tKIND\tAMOUNT\tSEVERITY\tDETAILS")
		for _, f := range flags {
			sev := fmt.Sprintf("%.1f", f.Severity)
			if f.Severity >= 2 {
				sev = common.Alert.Sprint(sev)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				f.Date.Format(models.DateLayout), f.Kind, models.FormatMoney(f.Amount), sev, f.Explanation)
		}
		return tw.Flush()
	})
}
