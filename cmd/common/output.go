// Package common contains shared functionality for command handlers
package common

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"fjacquet/fin-insights/cmd/root"
	"fjacquet/fin-insights/internal/pipeline"
	"fjacquet/fin-insights/internal/report"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Heading styles section titles of text output.
	Heading = color.New(color.Bold)
	// Alert styles values that need attention.
	Alert = color.New(color.FgRed, color.Bold)
	// Warning styles values close to a limit.
	Warning = color.New(color.FgYellow)
	// OK styles values within their limit.
	OK = color.New(color.FgGreen)
)

// Print writes v to the command output in the format selected by --format.
// text renders the human-readable form.
func Print(cmd *cobra.Command, v interface{}, text func(w io.Writer) error) error {
	w := cmd.OutOrStdout()
	switch root.Flags.Format {
	case "", "text":
		return text(w)
	default:
		return report.NewGenerator(root.Log).Write(w, v, root.Flags.Format)
	}
}

// Table returns a tab-aligned writer over w. Call Flush when done.
func Table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Run executes one analytics pass over the ledger.
func Run(ctx context.Context) (pipeline.Report, error) {
	c, err := root.Container()
	if err != nil {
		return pipeline.Report{}, err
	}
	rep, err := c.GetRunner().Run(ctx)
	if err != nil {
		return pipeline.Report{}, fmt.Errorf("analytics run failed: %w", err)
	}
	return rep, nil
}

// WarnDegraded prints the modules that missed the run deadline.
func WarnDegraded(w io.Writer, rep pipeline.Report) {
	if len(rep.Degraded) == 0 {
		return
	}
	Warning.Fprintf(w, "Incomplete run, modules past the deadline: %v\n", rep.Degraded)
}
