// Package common provides shared file input and output helpers.
package common

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
)

// Delimiter is the CSV field separator used for reading and writing.
var Delimiter rune = ','

// SetDelimiter allows setting the delimiter for CSV input and output
func SetDelimiter(delim rune) {
	Delimiter = delim
}

// idNamespace scopes the deterministic IDs given to rows without one.
var idNamespace = uuid.MustParse("6f1c3c1e-2b0a-4d52-9a53-0c7a2f7e9b11")

// TransactionRow is the CSV layout of a ledger transaction.
type TransactionRow struct {
	ID          string `csv:"id"`
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Category    string `csv:"category"`
	Account     string `csv:"account"`
	Confidence  string `csv:"confidence"`
	NeedsReview string `csv:"needs_review"`
}

func newReader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.Comma = Delimiter
	r.TrimLeadingSpace = true
	return r
}

// ReadTransactionsCSV reads transactions from a CSV file. Malformed rows are
// returned as DataErrors in rejected; with strict set the first one aborts
// the read.
func ReadTransactionsCSV(filePath string, strict bool, logger logging.Logger) ([]models.Transaction, []error, error) {
	logger = logging.OrNop(logger)
	logger.Info("Reading CSV file", logging.F(logging.FieldFile, filePath))

	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close file")
		}
	}()

	txns, rejected, err := DecodeTransactions(file, strict)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Successfully read CSV data",
		logging.F(logging.FieldCount, len(txns)),
		logging.F("rejected", len(rejected)))
	return txns, rejected, nil
}

// DecodeTransactions parses CSV rows from r. Rows without an id get one
// derived from their content, so importing the same file twice is
// idempotent.
func DecodeTransactions(r io.Reader, strict bool) ([]models.Transaction, []error, error) {
	var rows []TransactionRow
	if err := gocsv.UnmarshalCSV(newReader(r), &rows); err != nil {
		return nil, nil, fmt.Errorf("error parsing CSV file: %w", err)
	}

	txns := make([]models.Transaction, 0, len(rows))
	var rejected []error
	occurrences := make(map[string]int)

	for i, row := range rows {
		tx, err := row.toTransaction(i)
		if err != nil {
			if strict {
				return nil, nil, err
			}
			rejected = append(rejected, err)
			continue
		}
		if tx.ID == "" {
			content := strings.Join([]string{row.Date, strings.TrimSpace(row.Description), tx.Amount.String()}, "|")
			occurrences[content]++
			tx.ID = uuid.NewSHA1(idNamespace, []byte(content+"|"+strconv.Itoa(occurrences[content]))).String()
		}
		txns = append(txns, tx)
	}
	return txns, rejected, nil
}

func (row TransactionRow) toTransaction(index int) (models.Transaction, error) {
	b := models.NewTransactionBuilder().
		WithDate(row.Date).
		WithDescription(strings.TrimSpace(row.Description)).
		WithAmountFromString(row.Amount).
		WithCategory(strings.TrimSpace(row.Category)).
		WithAccount(strings.TrimSpace(row.Account))
	if row.ID != "" {
		b = b.WithID(strings.TrimSpace(row.ID))
	}

	tx, err := b.Build()
	if err != nil {
		return models.Transaction{}, &analyticserror.DataError{Record: index, Field: "row", Value: row.Description, Reason: "malformed", Err: err}
	}
	if row.ID == "" {
		tx.ID = ""
	}

	if c := strings.TrimSpace(row.Confidence); c != "" {
		conf, err := strconv.ParseFloat(c, 64)
		if err != nil || conf < 0 || conf > 1 {
			return models.Transaction{}, &analyticserror.DataError{Record: index, Field: "confidence", Value: c, Reason: "must be a number between 0 and 1"}
		}
		tx.Confidence = &conf
	}
	if v := strings.TrimSpace(row.NeedsReview); v != "" {
		review, err := strconv.ParseBool(v)
		if err != nil {
			return models.Transaction{}, &analyticserror.DataError{Record: index, Field: "needs_review", Value: v, Reason: "must be a boolean"}
		}
		tx.NeedsReview = review
	}
	return tx, nil
}

func toRow(tx models.Transaction) TransactionRow {
	row := TransactionRow{
		ID:          tx.ID,
		Date:        tx.Date.Format(models.DateLayout),
		Description: tx.Description,
		Amount:      tx.Amount.StringFixed(2),
		Category:    tx.Category,
		Account:     tx.Account,
	}
	if tx.Confidence != nil {
		row.Confidence = strconv.FormatFloat(*tx.Confidence, 'f', 4, 64)
	}
	if tx.NeedsReview {
		row.NeedsReview = "true"
	}
	return row
}

// EncodeTransactions writes txns as CSV to w.
func EncodeTransactions(w io.Writer, transactions []models.Transaction) error {
	rows := make([]TransactionRow, len(transactions))
	for i, tx := range transactions {
		rows[i] = toRow(tx)
	}

	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = Delimiter
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

// WriteTransactionsToCSV writes transactions to a CSV file, creating the
// parent directory if needed.
func WriteTransactionsToCSV(transactions []models.Transaction, csvFile string, logger logging.Logger) error {
	logger = logging.OrNop(logger)
	if transactions == nil {
		return fmt.Errorf("cannot write nil transactions to CSV")
	}

	logger.Info("Writing transactions to CSV file",
		logging.F(logging.FieldFile, csvFile),
		logging.F(logging.FieldCount, len(transactions)))

	dir := filepath.Dir(csvFile)
	if err := os.MkdirAll(dir, models.PermissionDirectory); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	var buf bytes.Buffer
	if err := EncodeTransactions(&buf, transactions); err != nil {
		return err
	}
	if err := os.WriteFile(csvFile, buf.Bytes(), models.PermissionReportFile); err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}

	logger.Info("Successfully wrote transactions to CSV file",
		logging.F(logging.FieldFile, csvFile),
		logging.F(logging.FieldCount, len(transactions)))
	return nil
}
