package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the canonical date format of ingested records.
const DateLayout = "2006-01-02"

// TransactionBuilder provides a fluent API for constructing transactions
type TransactionBuilder struct {
	tx  Transaction
	err error
}

// NewTransactionBuilder creates a new TransactionBuilder with default values
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		tx: Transaction{
			Amount: decimal.Zero,
		},
	}
}

// WithID sets the transaction ID
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.ID = id
	return b
}

// WithSeq sets the ingestion order
func (b *TransactionBuilder) WithSeq(seq int64) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Seq = seq
	return b
}

// WithDate sets the transaction date from a string in YYYY-MM-DD format
func (b *TransactionBuilder) WithDate(dateStr string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if dateStr == "" {
		b.err = errors.New("date cannot be empty")
		return b
	}
	date, err := time.Parse(DateLayout, strings.TrimSpace(dateStr))
	if err != nil {
		b.err = fmt.Errorf("invalid date %q: %w", dateStr, err)
		return b
	}
	b.tx.Date = date
	return b
}

// WithDateFromTime sets the transaction date from a time.Time
func (b *TransactionBuilder) WithDateFromTime(date time.Time) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if date.IsZero() {
		b.err = errors.New("date cannot be zero")
		return b
	}
	b.tx.Date = date
	return b
}

// WithDescription sets the free-text description
func (b *TransactionBuilder) WithDescription(description string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Description = description
	return b
}

// WithAmount sets the signed transaction amount
func (b *TransactionBuilder) WithAmount(amount decimal.Decimal) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Amount = amount
	return b
}

// WithAmountFromString parses and sets the signed transaction amount
func (b *TransactionBuilder) WithAmountFromString(amount string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	dec, err := ParseAmount(amount)
	if err != nil {
		b.err = err
		return b
	}
	b.tx.Amount = dec
	return b
}

// AsExpense sets a positive magnitude as an outflow
func (b *TransactionBuilder) AsExpense(amount float64) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Amount = decimal.NewFromFloat(amount).Abs().Neg()
	return b
}

// AsIncome sets a positive magnitude as an inflow
func (b *TransactionBuilder) AsIncome(amount float64) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Amount = decimal.NewFromFloat(amount).Abs()
	return b
}

// WithCategory sets the category
func (b *TransactionBuilder) WithCategory(category string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Category = category
	return b
}

// WithAccount sets the source account
func (b *TransactionBuilder) WithAccount(account string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Account = account
	return b
}

// Build validates and returns the transaction. A missing ID is generated.
func (b *TransactionBuilder) Build() (Transaction, error) {
	if b.err != nil {
		return Transaction{}, b.err
	}
	if b.tx.Date.IsZero() {
		return Transaction{}, errors.New("date is required")
	}
	if strings.TrimSpace(b.tx.Description) == "" {
		return Transaction{}, errors.New("description is required")
	}
	if b.tx.ID == "" {
		b.tx.ID = uuid.NewString()
	}
	return b.tx, nil
}

// MustBuild is Build that panics on error; intended for fixtures.
func (b *TransactionBuilder) MustBuild() Transaction {
	tx, err := b.Build()
	if err != nil {
		panic(err)
	}
	return tx
}
