// Package ask handles the ask command.
package ask

import (
	"fmt"
	"io"
	"strings"

	"fjacquet/fin-insights/cmd/common"
	"fjacquet/fin-insights/cmd/root"
	"fjacquet/fin-insights/internal/insights"

	"github.com/spf13/cobra"
)

// Answer is the output of the ask command.
type Answer struct {
	Question string          `json:"question" yaml:"question"`
	Intent   insights.Intent `json:"intent" yaml:"intent"`
	Answer   string          `json:"answer" yaml:"answer"`
}

// Cmd represents the ask command
var Cmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question about your finances",
	Long: `Ask routes a free-text question to the analytics module that answers it and
phrases the result. Every figure in the answer comes from that module.`,
	Example: `  fin-insights ask "how am I doing on my budget?"
  fin-insights ask "which debt should I pay first?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: askFunc,
}

func askFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Container()
	if err != nil {
		return err
	}
	question := strings.Join(args, " ")
	svc := c.GetInsights()
	text, err := svc.Answer(cmd.Context(), question)
	if err != nil {
		return err
	}
	out := Answer{Question: question, Intent: svc.Classify(question), Answer: text}
	return common.Print(cmd, out, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, out.Answer)
		return err
	})
}
