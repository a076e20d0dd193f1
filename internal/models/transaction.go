// Package models provides the data structures used throughout the application.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single ledger entry. Expenses carry a negative Amount,
// income a positive one.
//
// Once ingested a transaction is never deleted; only Category, Confidence
// and NeedsReview may be overwritten by the categorization engine.
type Transaction struct {
	ID          string          `json:"id" yaml:"id"`
	Seq         int64           `json:"seq" yaml:"seq"`
	Date        time.Time       `json:"date" yaml:"date"`
	Description string          `json:"description" yaml:"description"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	Category    string          `json:"category,omitempty" yaml:"category,omitempty"`
	Account     string          `json:"account,omitempty" yaml:"account,omitempty"`
	Confidence  *float64        `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	NeedsReview bool            `json:"needs_review,omitempty" yaml:"needs_review,omitempty"`
}

// IsExpense reports whether the transaction moves money out of the account.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// Spend returns the absolute value of an expense, or zero for income.
func (t Transaction) Spend() decimal.Decimal {
	if !t.IsExpense() {
		return decimal.Zero
	}
	return t.Amount.Neg()
}

// IsCategorized reports whether a real category has been assigned.
func (t Transaction) IsCategorized() bool {
	return t.Category != "" && t.Category != CategoryUncategorized
}

// WithCategory returns a copy of the transaction labeled with category and confidence.
func (t Transaction) WithCategory(category string, confidence float64) Transaction {
	c := confidence
	t.Category = category
	t.Confidence = &c
	return t
}

// Ref returns the entity reference pointing at this transaction.
func (t Transaction) Ref() EntityRef {
	return EntityRef{Kind: RefTransaction, ID: t.ID}
}

// EffectiveCategory returns the assigned category or CategoryUncategorized.
func (t Transaction) EffectiveCategory() string {
	if t.Category == "" {
		return CategoryUncategorized
	}
	return t.Category
}

// Snapshot is a read-only, ordered view of the ledger taken at the start of a run.
type Snapshot struct {
	Transactions []Transaction
	TakenAt      time.Time
}

// Index returns the snapshot transactions keyed by ID.
func (s Snapshot) Index() map[string]Transaction {
	idx := make(map[string]Transaction, len(s.Transactions))
	for _, tx := range s.Transactions {
		idx[tx.ID] = tx
	}
	return idx
}

// EntityKind identifies what an EntityRef points at.
type EntityKind string

const (
	RefTransaction EntityKind = "transaction"
	RefCategory    EntityKind = "category"
	RefHorizon     EntityKind = "horizon"
)

// EntityRef references an entity that triggered an anomaly or a nudge.
type EntityRef struct {
	Kind EntityKind `json:"kind" yaml:"kind"`
	ID   string     `json:"id" yaml:"id"`
}
