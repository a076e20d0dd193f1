// Package train handles the train command, which rebuilds the categorization
// model from the training examples and the feedback log.
package train

import (
	"fmt"
	"io"
	"strings"

	"fjacquet/fin-insights/cmd/common"
	"fjacquet/fin-insights/cmd/root"
	"fjacquet/fin-insights/internal/categorizer"

	"github.com/spf13/cobra"
)

// Result is the outcome printed by the train command.
type Result struct {
	Version  string   `json:"version" yaml:"version"`
	Backend  string   `json:"backend" yaml:"backend"`
	Examples int      `json:"examples" yaml:"examples"`
	Labels   []string `json:"labels" yaml:"labels"`
	Path     string   `json:"path" yaml:"path"`
}

// Cmd represents the train command
var Cmd = &cobra.Command{
	Use:   "train",
	Short: "Train the categorization model",
	Long: `Train builds a new model from the training examples with every feedback
correction applied, and saves it to the model file of the data directory.`,
	RunE: trainFunc,
}

func trainFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Container()
	if err != nil {
		return err
	}
	m, err := c.GetEngine().Retrain(cmd.Context())
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	path := c.ModelPath()
	if err := categorizer.Save(path, m); err != nil {
		return err
	}

	out := Result{Version: m.Version, Backend: string(m.Backend), Examples: m.ExampleCount, Labels: m.Labels, Path: path}
	return common.Print(cmd, out, func(w io.Writer) error {
		fmt.Fprintf(w, "Trained %s model %s on %d examples.\n", out.Backend, out.Version, out.Examples)
		fmt.Fprintf(w, "Labels: %s\n", strings.Join(out.Labels, ", "))
		fmt.Fprintf(w, "Saved to %s\n", out.Path)
		return nil
	})
}
