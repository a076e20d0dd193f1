package run_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/fin-insights/cmd/budget"
	"fjacquet/fin-insights/cmd/importcsv"
	"fjacquet/fin-insights/cmd/nudges"
	"fjacquet/fin-insights/cmd/root"
	"fjacquet/fin-insights/cmd/run"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ledgerCSV = `id,date,description,amount,category
s1,2024-01-25,Salary,3000,Income
r1,2024-01-28,Rent,-1200,Rent
g1,2024-01-15,Migros,-400,Groceries
s2,2024-02-25,Salary,3000,Income
r2,2024-02-28,Rent,-1200,Rent
g2,2024-02-15,Migros,-400,Groceries
s3,2024-03-25,Salary,3000,Income
r3,2024-03-28,Rent,-1200,Rent
g3,2024-03-15,Migros,-400,Groceries
d1,2024-03-20,City Gym,-60,Fitness
d2,2024-03-22,City Gym,-60,Fitness
`

func TestMain(m *testing.M) {
	root.Init()
	root.Cmd.AddCommand(importcsv.Cmd, run.Cmd, budget.Cmd, nudges.Cmd)
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	root.Cmd.SetOut(&out)
	root.Cmd.SetArgs(args)
	t.Cleanup(func() {
		root.Cmd.SetOut(nil)
		root.Cmd.SetArgs(nil)
	})
	require.NoError(t, root.Cmd.Execute())
	return out.Bytes()
}

func TestImportThenRun(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "ledger.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(ledgerCSV), 0600))

	var imported importcsv.Result
	require.NoError(t, json.Unmarshal(execute(t, "--data-dir", dir, "--format", "json", "import", "-i", csvPath), &imported))
	assert.Equal(t, 11, imported.Read)
	assert.Equal(t, 11, imported.Added)

	// A second import adds nothing.
	require.NoError(t, json.Unmarshal(execute(t, "--data-dir", dir, "--format", "json", "import", "-i", csvPath), &imported))
	assert.Equal(t, 0, imported.Added)
	assert.Equal(t, 11, imported.Skipped)

	reportPath := filepath.Join(dir, "out", "report.yaml")
	var rep struct {
		RunID        string `json:"run_id"`
		Transactions int    `json:"transactions"`
		Budgets      []struct {
			Category string `json:"category"`
		} `json:"budgets"`
	}
	require.NoError(t, json.Unmarshal(execute(t, "--data-dir", dir, "--format", "json", "run", "--out", reportPath), &rep))
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 11, rep.Transactions)
	assert.NotEmpty(t, rep.Budgets)

	written, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "run_id:")
}

func TestNudges_DuplicateCharge(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "ledger.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(ledgerCSV), 0600))
	execute(t, "--data-dir", dir, "--format", "json", "import", "-i", csvPath)

	var list []struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(execute(t, "--data-dir", dir, "--format", "json", "nudges"), &list))
	var kinds []string
	for _, n := range list {
		kinds = append(kinds, n.Kind)
	}
	assert.Contains(t, kinds, "duplicate_review")
}

func TestRun_TextOutput(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "ledger.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(ledgerCSV), 0600))
	execute(t, "--data-dir", dir, "--format", "json", "import", "-i", csvPath)
	require.NoError(t, run.Cmd.Flags().Set("out", ""))

	out := execute(t, "--data-dir", dir, "--format", "text", "run")
	assert.Contains(t, string(out), "Transactions")
}
