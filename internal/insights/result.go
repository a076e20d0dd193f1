package insights

import (
	"time"

	"fjacquet/fin-insights/internal/forecast"
	"fjacquet/fin-insights/internal/models"

	"github.com/shopspring/decimal"
)

// Intent is the kind of question being answered.
type Intent string

const (
	IntentCategorize  Intent = "categorize"
	IntentBudget      Intent = "budget"
	IntentAnomaly     Intent = "anomaly"
	IntentForecast    Intent = "forecast"
	IntentGoal        Intent = "goal"
	IntentNudges      Intent = "nudges"
	IntentDebt        Intent = "debt"
	IntentSummary     Intent = "summary"
	IntentUnavailable Intent = "unavailable"
)

// Result is the structured answer of one intent. Each implementation is
// rendered by the template named after its Intent.
type Result interface {
	Intent() Intent
}

// CategorizeResult is the category of one description.
type CategorizeResult struct {
	Description string
	Category    string
	Confidence  float64
	NeedsReview bool
}

func (CategorizeResult) Intent() Intent { return IntentCategorize }

// BudgetResult is the month-to-date tracking of every budget.
type BudgetResult struct {
	AsOf     time.Time
	Tracking []models.TrackingResult
}

func (BudgetResult) Intent() Intent { return IntentBudget }

// AnomalyResult holds the most severe flags of a run.
type AnomalyResult struct {
	Flags []models.AnomalyFlag
	Total int
}

func (AnomalyResult) Intent() Intent { return IntentAnomaly }

// ForecastResult wraps a balance projection.
type ForecastResult struct {
	forecast.Result
}

func (ForecastResult) Intent() Intent { return IntentForecast }

// GoalResult is a contribution plan. Missing is set when the question did not
// name an amount.
type GoalResult struct {
	Plan    models.GoalPlan
	Missing bool
}

func (GoalResult) Intent() Intent { return IntentGoal }

// NudgesResult lists the prioritized suggestions of a run.
type NudgesResult struct {
	Nudges []models.Nudge
}

func (NudgesResult) Intent() Intent { return IntentNudges }

// DebtResult is the avalanche payoff order. Months and Interest are set only
// when HasPayoff is.
type DebtResult struct {
	Ordered   []string
	HasPayoff bool
	Months    int
	Interest  decimal.Decimal
}

func (DebtResult) Intent() Intent { return IntentDebt }

// SummaryResult is the highlight of the latest month.
type SummaryResult struct {
	Highlights models.Highlights
}

func (SummaryResult) Intent() Intent { return IntentSummary }

// UnavailableResult is returned when the module behind an intent produced
// nothing in this run.
type UnavailableResult struct {
	For Intent
}

func (UnavailableResult) Intent() Intent { return IntentUnavailable }
