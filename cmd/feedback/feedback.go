// Package feedback handles the feedback command, which records a category
// correction.
package feedback

import (
	"fmt"
	"io"

	"fjacquet/fin-insights/cmd/common"
	"fjacquet/fin-insights/cmd/root"

	"github.com/spf13/cobra"
)

// Cmd represents the feedback command
var Cmd = &cobra.Command{
	Use:   "feedback <description> <category>",
	Short: "Record the correct category of a description",
	Long: `Feedback records a user correction. It takes effect immediately for the
exact description and is folded into the model on the next train.`,
	Args: cobra.ExactArgs(2),
	RunE: feedbackFunc,
}

func feedbackFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Container()
	if err != nil {
		return err
	}
	description, category := args[0], args[1]
	if err := c.GetEngine().RecordFeedback(description, category); err != nil {
		return err
	}
	out := map[string]string{"description": description, "category": category}
	return common.Print(cmd, out, func(w io.Writer) error {
		fmt.Fprintf(w, "Recorded %q as %s.\n", description, category)
		return nil
	})
}
