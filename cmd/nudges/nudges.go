// Package nudges handles the nudges command.
package nudges

import (
	"fmt"
	"io"

	"fjacquet/fin-insights/cmd/common"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/nudge"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var limit int

// Cmd represents the nudges command
var Cmd = &cobra.Command{
	Use:   "nudges",
	Short: "List prioritized suggestions",
	Long: `Nudges joins the budget, anomaly and forecast results into suggestions,
cash-flow risks first, then possible duplicate charges, budget pacing and
category growth.`,
	RunE: nudgesFunc,
}

func init() {
	Cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of nudges to show (0 for all)")
}

func nudgesFunc(cmd *cobra.Command, args []string) error {
	rep, err := common.Run(cmd.Context())
	if err != nil {
		return err
	}
	list := rep.Nudges
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return common.Print(cmd, list, func(w io.Writer) error {
		common.WarnDegraded(w, rep)
		if len(list) == 0 {
			common.OK.Fprintln(w, "Nothing needs your attention.")
			return nil
		}
		for i, n := range list {
			style(n).Fprintf(w, "%d. [%s] ", i+1, n.Kind)
			fmt.Fprintln(w, n.Message)
		}
		return nil
	})
}

func style(n models.Nudge) *color.Color {
	switch {
	case n.Priority >= nudge.PriorityCashflow:
		return common.Alert
	case n.Priority >= nudge.PriorityPacing:
		return common.Warning
	default:
		return common.Heading
	}
}
