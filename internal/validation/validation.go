// Package validation checks transaction records at the ingestion boundary.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/models"
)

// MaxDescriptionLength bounds the free-text description of a record.
const MaxDescriptionLength = 512

// Transaction validates a single record. index is its position in the input
// and is reported in the returned DataError.
func Transaction(index int, tx models.Transaction) error {
	if tx.Date.IsZero() {
		return &analyticserror.DataError{Record: index, Field: "date", Reason: "required"}
	}
	desc := strings.TrimSpace(tx.Description)
	if desc == "" {
		return &analyticserror.DataError{Record: index, Field: "description", Reason: "required"}
	}
	if !utf8.ValidString(tx.Description) {
		return &analyticserror.DataError{Record: index, Field: "description", Value: tx.Description, Reason: "not valid UTF-8"}
	}
	if utf8.RuneCountInString(tx.Description) > MaxDescriptionLength {
		return &analyticserror.DataError{
			Record: index,
			Field:  "description",
			Value:  truncate(tx.Description, 32),
			Reason: fmt.Sprintf("longer than %d characters", MaxDescriptionLength),
		}
	}
	if tx.Confidence != nil && (*tx.Confidence < 0 || *tx.Confidence > 1) {
		return &analyticserror.DataError{
			Record: index,
			Field:  "confidence",
			Value:  fmt.Sprintf("%g", *tx.Confidence),
			Reason: "must be between 0 and 1",
		}
	}
	return nil
}

// Transactions validates every record and returns the valid ones together
// with one DataError per rejected record. When strict is set the first
// invalid record aborts validation and its error is returned.
func Transactions(txns []models.Transaction, strict bool) ([]models.Transaction, []error, error) {
	valid := make([]models.Transaction, 0, len(txns))
	var rejected []error
	seen := make(map[string]int, len(txns))

	for i, tx := range txns {
		err := Transaction(i, tx)
		if err == nil && tx.ID != "" {
			if first, dup := seen[tx.ID]; dup {
				err = &analyticserror.DataError{
					Record: i,
					Field:  "id",
					Value:  tx.ID,
					Reason: fmt.Sprintf("duplicates record %d", first),
				}
			} else {
				seen[tx.ID] = i
			}
		}
		if err != nil {
			if strict {
				return nil, nil, err
			}
			rejected = append(rejected, err)
			continue
		}
		valid = append(valid, tx)
	}
	return valid, rejected, nil
}

// IsValidOutputFormat checks if the given report format is supported.
func IsValidOutputFormat(format string) error {
	switch format {
	case "json", "yaml", "text":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s. Supported formats are 'json', 'yaml', 'text'", format)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
