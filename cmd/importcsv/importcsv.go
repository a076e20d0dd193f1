// Package importcsv handles the import command, which loads a CSV file into
// the ledger.
package importcsv

import (
	"fmt"
	"io"

	"fjacquet/fin-insights/cmd/common"
	"fjacquet/fin-insights/cmd/root"
	csvio "fjacquet/fin-insights/internal/common"
	"fjacquet/fin-insights/internal/logging"

	"github.com/spf13/cobra"
)

var (
	input     string
	strict    bool
	delimiter string
)

// Result is the outcome printed by the import command.
type Result struct {
	File     string   `json:"file" yaml:"file"`
	Read     int      `json:"read" yaml:"read"`
	Added    int      `json:"added" yaml:"added"`
	Skipped  int      `json:"skipped" yaml:"skipped"`
	Rejected []string `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

// Cmd represents the import command
var Cmd = &cobra.Command{
	Use:   "import",
	Short: "Import transactions from a CSV file into the ledger",
	Long: `Import reads a CSV file with the columns id, date, description, amount
and optionally category, account, confidence and needs_review. Rows already in
the ledger are skipped, so the same file can be imported repeatedly.`,
	RunE: importFunc,
}

func init() {
	Cmd.Flags().StringVarP(&input, "input", "i", "", "CSV file to import")
	Cmd.Flags().BoolVar(&strict, "strict", false, "Abort on the first malformed row")
	Cmd.Flags().StringVar(&delimiter, "csv-delimiter", "", "CSV field separator (default ',')")
	_ = Cmd.MarkFlagRequired("input")
}

func importFunc(cmd *cobra.Command, args []string) error {
	if delimiter != "" {
		csvio.SetDelimiter([]rune(delimiter)[0])
	}
	c, err := root.Container()
	if err != nil {
		return err
	}

	txns, rejected, err := csvio.ReadTransactionsCSV(input, strict, root.Log)
	if err != nil {
		return err
	}
	for _, r := range rejected {
		root.Log.Warn("Rejected row", logging.F(logging.FieldReason, r.Error()))
	}

	res, err := c.GetLedger().Import(cmd.Context(), txns)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	out := Result{File: input, Read: len(txns), Added: res.Added, Skipped: res.Skipped}
	for _, r := range rejected {
		out.Rejected = append(out.Rejected, r.Error())
	}
	return common.Print(cmd, out, func(w io.Writer) error {
		fmt.Fprintf(w, "Imported %d of %d transactions from %s (%d already present).\n", out.Added, out.Read, out.File, out.Skipped)
		if len(out.Rejected) > 0 {
			common.Warning.Fprintf(w, "%d rows rejected:\n", len(out.Rejected))
			for _, r := range out.Rejected {
				fmt.Fprintf(w, "  %s\n", r)
			}
		}
		return nil
	})
}
