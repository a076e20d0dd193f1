package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrainingExample is a labeled description used to train the classifier.
type TrainingExample struct {
	Description string `json:"description" yaml:"description"`
	Category    string `json:"category" yaml:"category"`
}

// FeedbackRecord is one user correction. Records are appended, never edited;
// the most recent record for a Key wins.
type FeedbackRecord struct {
	Seq         uint64    `json:"seq" yaml:"seq"`
	Key         string    `json:"key" yaml:"key"`
	Description string    `json:"description" yaml:"description"`
	Category    string    `json:"category" yaml:"category"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
}

// KeywordRule maps description keywords to a category for the fallback classifier.
type KeywordRule struct {
	Category string   `yaml:"category" json:"category"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// KeywordRulesConfig is the layout of the keyword rules YAML file.
type KeywordRulesConfig struct {
	Rules []KeywordRule `yaml:"rules"`
}

// TrainingExamplesConfig is the layout of the training examples YAML file.
type TrainingExamplesConfig struct {
	Examples []TrainingExample `yaml:"examples"`
}

// Debt is an outstanding loan considered for payoff planning.
type Debt struct {
	Lender  string          `json:"lender" yaml:"lender"`
	Balance decimal.Decimal `json:"balance" yaml:"balance"`
	APR     decimal.Decimal `json:"apr" yaml:"apr"`
	Payment decimal.Decimal `json:"payment" yaml:"payment"`
}

// PayoffMonth is one row of an amortization schedule.
type PayoffMonth struct {
	Month        int             `json:"month" yaml:"month"`
	Balance      decimal.Decimal `json:"balance" yaml:"balance"`
	Interest     decimal.Decimal `json:"interest" yaml:"interest"`
	Principal    decimal.Decimal `json:"principal" yaml:"principal"`
	TotalPayment decimal.Decimal `json:"total_payment" yaml:"total_payment"`
}
