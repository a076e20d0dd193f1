package common

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `id,date,description,amount,category,account
t1,2024-03-01,Whole Foods Market,-82.15,Groceries,checking
,2024-03-02,Netflix,-15.99,,checking
,2024-03-02,Netflix,-15.99,,checking
t4,not-a-date,Broken row,-1.00,,checking
t5,2024-03-03,Salary,3200,Income,checking
`

func TestDecodeTransactions(t *testing.T) {
	txns, rejected, err := DecodeTransactions(strings.NewReader(sampleCSV), false)
	require.NoError(t, err)
	require.Len(t, txns, 4)
	require.Len(t, rejected, 1)

	assert.Equal(t, "t1", txns[0].ID)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("-82.15")))
	assert.Equal(t, models.CategoryGroceries, txns[0].Category)

	// Identical rows get distinct, stable ids.
	assert.NotEmpty(t, txns[1].ID)
	assert.NotEqual(t, txns[1].ID, txns[2].ID)
	again, _, err := DecodeTransactions(strings.NewReader(sampleCSV), false)
	require.NoError(t, err)
	assert.Equal(t, txns[1].ID, again[1].ID)
	assert.Equal(t, txns[2].ID, again[2].ID)

	var dataErr *analyticserror.DataError
	require.ErrorAs(t, rejected[0], &dataErr)
	assert.Equal(t, 3, dataErr.Record)
}

func TestDecodeTransactions_Strict(t *testing.T) {
	_, _, err := DecodeTransactions(strings.NewReader(sampleCSV), true)
	var dataErr *analyticserror.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, 3, dataErr.Record)
}

func TestDecodeTransactions_BadConfidence(t *testing.T) {
	in := "id,date,description,amount,confidence\nx,2024-01-01,Coffee,-3,1.5\n"
	_, rejected, err := DecodeTransactions(strings.NewReader(in), false)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].Error(), "confidence")
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "ledger.csv")

	tx := models.NewTransactionBuilder().
		WithID("a").
		WithDate("2024-04-10").
		WithDescription("Shell, gas station").
		AsExpense(45).
		MustBuild().
		WithCategory("Fuel", 0.8123)
	tx.NeedsReview = true

	logger := logging.NewMockLogger()
	require.NoError(t, WriteTransactionsToCSV([]models.Transaction{tx}, path, logger))
	assert.True(t, logger.HasEntry("INFO", "Successfully wrote transactions to CSV file"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Shell, gas station"`)
	assert.Contains(t, string(data), "-45.00")

	got, rejected, err := ReadTransactionsCSV(path, true, logger)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "Fuel", got[0].Category)
	require.NotNil(t, got[0].Confidence)
	assert.InDelta(t, 0.8123, *got[0].Confidence, 1e-9)
	assert.True(t, got[0].NeedsReview)
}

func TestWriteTransactionsToCSV_Nil(t *testing.T) {
	assert.Error(t, WriteTransactionsToCSV(nil, filepath.Join(t.TempDir(), "x.csv"), nil))
}

func TestEncodeTransactions_Delimiter(t *testing.T) {
	SetDelimiter(';')
	defer SetDelimiter(',')

	tx := models.NewTransactionBuilder().WithID("b").WithDate("2024-01-02").WithDescription("Rent").AsExpense(1000).MustBuild()
	var buf bytes.Buffer
	require.NoError(t, EncodeTransactions(&buf, []models.Transaction{tx}))
	assert.True(t, strings.HasPrefix(buf.String(), "id;date;description;amount"))
}
