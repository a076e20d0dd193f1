package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleBudgets() []models.Budget {
	return []models.Budget{
		{Category: models.CategoryGroceries, Limit: decimal.RequireFromString("270.00"), AverageMonthly: decimal.RequireFromString("300"), MonthsObserved: 3, Period: models.PeriodMonthly},
		{Category: models.CategoryDining, Limit: decimal.RequireFromString("90.50"), MonthsObserved: 1, Period: models.PeriodMonthly, InsufficientData: true},
	}
}

func TestGenerator_JSON(t *testing.T) {
	g := NewGenerator(logging.NewMockLogger())

	data, err := g.Generate(sampleBudgets(), FormatJSON)
	require.NoError(t, err)

	var decoded []models.Budget
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, models.CategoryGroceries, decoded[0].Category)
	assert.True(t, decoded[1].Limit.Equal(decimal.RequireFromString("90.5")))
	assert.True(t, decoded[1].InsufficientData)
}

func TestGenerator_YAML(t *testing.T) {
	g := NewGenerator(nil)

	data, err := g.Generate(sampleBudgets(), "YAML")
	require.NoError(t, err)
	assert.Contains(t, string(data), "category: Groceries")

	var decoded []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "270", decoded[0]["limit"])
}

func TestGenerator_UnsupportedFormat(t *testing.T) {
	_, err := NewGenerator(nil).Generate(sampleBudgets(), "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")
}

func TestGenerator_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewGenerator(nil).Write(&buf, map[string]int{"nudges": 2}, FormatJSON))
	assert.JSONEq(t, `{"nudges": 2}`, buf.String())
}

func TestGenerator_WriteFile(t *testing.T) {
	logger := logging.NewMockLogger()
	g := NewGenerator(logger)
	path := filepath.Join(t.TempDir(), "out", "budgets.yml")

	require.NoError(t, g.WriteFile(path, sampleBudgets()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "months_observed: 3")
	assert.True(t, logger.HasEntry("INFO", "Report written"))
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatForPath("run.yaml"))
	assert.Equal(t, FormatYAML, FormatForPath("RUN.YML"))
	assert.Equal(t, FormatJSON, FormatForPath("run.json"))
	assert.Equal(t, FormatJSON, FormatForPath("run"))
}
