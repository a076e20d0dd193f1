package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a suggested spending limit for one category and period.
type Budget struct {
	Category         string          `json:"category" yaml:"category"`
	Limit            decimal.Decimal `json:"limit" yaml:"limit"`
	AverageMonthly   decimal.Decimal `json:"average_monthly" yaml:"average_monthly"`
	MonthsObserved   int             `json:"months_observed" yaml:"months_observed"`
	Period           string          `json:"period" yaml:"period"`
	InsufficientData bool            `json:"insufficient_data,omitempty" yaml:"insufficient_data,omitempty"`
}

// BudgetStatus classifies month-to-date spending against a budget.
type BudgetStatus string

const (
	StatusOnTrack          BudgetStatus = "on_track"
	StatusWatch            BudgetStatus = "watch"
	StatusPacingOver       BudgetStatus = "pacing_over"
	StatusOverLimit        BudgetStatus = "over_limit"
	StatusInsufficientData BudgetStatus = "insufficient_data"
)

// TrackingResult compares month-to-date spend with the prorated budget.
type TrackingResult struct {
	Category         string          `json:"category" yaml:"category"`
	Limit            decimal.Decimal `json:"limit" yaml:"limit"`
	Spent            decimal.Decimal `json:"spent" yaml:"spent"`
	ProratedLimit    decimal.Decimal `json:"prorated_limit" yaml:"prorated_limit"`
	Remaining        decimal.Decimal `json:"remaining" yaml:"remaining"`
	PercentUsed      decimal.Decimal `json:"percent_used" yaml:"percent_used"`
	ElapsedDays      int             `json:"elapsed_days" yaml:"elapsed_days"`
	PeriodDays       int             `json:"period_days" yaml:"period_days"`
	OverspendRisk    bool            `json:"overspend_risk" yaml:"overspend_risk"`
	Status           BudgetStatus    `json:"status" yaml:"status"`
	InsufficientData bool            `json:"insufficient_data,omitempty" yaml:"insufficient_data,omitempty"`
	LastActivity     time.Time       `json:"last_activity,omitempty" yaml:"last_activity,omitempty"`
}

// CategoryTrend compares the spend of the last two complete months.
type CategoryTrend struct {
	Category      string          `json:"category" yaml:"category"`
	PreviousMonth decimal.Decimal `json:"previous_month" yaml:"previous_month"`
	LastMonth     decimal.Decimal `json:"last_month" yaml:"last_month"`
	Growth        decimal.Decimal `json:"growth" yaml:"growth"`
	MonthStart    time.Time       `json:"month_start" yaml:"month_start"`
}

// Highlights summarizes the latest month with activity.
type Highlights struct {
	Month            time.Time       `json:"month" yaml:"month"`
	Income           decimal.Decimal `json:"income" yaml:"income"`
	Spend            decimal.Decimal `json:"spend" yaml:"spend"`
	Net              decimal.Decimal `json:"net" yaml:"net"`
	TopCategory      string          `json:"top_category,omitempty" yaml:"top_category,omitempty"`
	TopCategorySpend decimal.Decimal `json:"top_category_spend" yaml:"top_category_spend"`
	AverageTicket    decimal.Decimal `json:"average_ticket" yaml:"average_ticket"`
	Transactions     int             `json:"transactions" yaml:"transactions"`
}

// AnomalyKind names the detector that raised a flag.
type AnomalyKind string

const (
	AnomalySpike     AnomalyKind = "spike"
	AnomalyDuplicate AnomalyKind = "duplicate"
	AnomalyPacing    AnomalyKind = "pacing"
)

// AnomalyFlag marks a transaction as unusual. Severity is expressed as a
// multiple of the detector's threshold, so flags of different kinds compare.
type AnomalyFlag struct {
	Transaction EntityRef   `json:"transaction" yaml:"transaction"`
	Related     []EntityRef `json:"related,omitempty" yaml:"related,omitempty"`
	Kind        AnomalyKind `json:"kind" yaml:"kind"`
	Category    string      `json:"category" yaml:"category"`
	Severity    float64     `json:"severity" yaml:"severity"`
	Explanation string      `json:"explanation" yaml:"explanation"`
	Description string      `json:"description" yaml:"description"`
	Date        time.Time   `json:"date" yaml:"date"`
	Seq         int64       `json:"seq" yaml:"seq"`
	// GapDays is the distance to the closest earlier charge of a duplicate.
	GapDays int `json:"gap_days,omitempty" yaml:"gap_days,omitempty"`

	// Amount is the value the detector evaluated: the transaction spend for
	// spikes and duplicates, the month-end estimate for pacing.
	Amount decimal.Decimal `json:"amount" yaml:"amount"`
}

// ConfidenceTier grades how much history backs a forecast point.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// ForecastPoint is the projected balance at one horizon.
type ForecastPoint struct {
	Date               time.Time       `json:"date" yaml:"date"`
	HorizonDays        int             `json:"horizon_days" yaml:"horizon_days"`
	HorizonLabel       string          `json:"horizon_label" yaml:"horizon_label"`
	ProjectedBalance   decimal.Decimal `json:"projected_balance" yaml:"projected_balance"`
	PessimisticBalance decimal.Decimal `json:"pessimistic_balance" yaml:"pessimistic_balance"`
	RecurringDeducted  decimal.Decimal `json:"recurring_deducted" yaml:"recurring_deducted"`
	Tier               ConfidenceTier  `json:"confidence_tier" yaml:"confidence_tier"`
}

// Cadence is how often a recurring expense is charged.
type Cadence string

const (
	CadenceWeekly    Cadence = "weekly"
	CadenceBiweekly  Cadence = "biweekly"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceYearly    Cadence = "yearly"
)

// RecurringExpense is a known scheduled outflow. Amount is positive.
// LastObserved is zero when the charge has not been seen in the ledger.
type RecurringExpense struct {
	Name         string          `json:"name" yaml:"name"`
	Match        string          `json:"match,omitempty" yaml:"match,omitempty"`
	Amount       decimal.Decimal `json:"amount" yaml:"amount"`
	Cadence      Cadence         `json:"cadence" yaml:"cadence"`
	NextDue      time.Time       `json:"next_due" yaml:"next_due"`
	LastObserved time.Time       `json:"last_observed,omitempty" yaml:"last_observed,omitempty"`
}

// Goal is a savings target.
type Goal struct {
	Name       string          `json:"name" yaml:"name"`
	Target     decimal.Decimal `json:"target" yaml:"target"`
	TargetDate time.Time       `json:"target_date" yaml:"target_date"`
	Progress   decimal.Decimal `json:"progress" yaml:"progress"`
}

// GoalPlan is the contribution plan for a Goal.
type GoalPlan struct {
	Goal             Goal            `json:"goal" yaml:"goal"`
	RemainingAmount  decimal.Decimal `json:"remaining_amount" yaml:"remaining_amount"`
	RemainingDays    int             `json:"remaining_days" yaml:"remaining_days"`
	RemainingMonths  int             `json:"remaining_months" yaml:"remaining_months"`
	MonthlyTarget    decimal.Decimal `json:"monthly_target" yaml:"monthly_target"`
	SafeTarget       decimal.Decimal `json:"safe_target" yaml:"safe_target"`
	Buffer           decimal.Decimal `json:"buffer" yaml:"buffer"`
	DisposableIncome decimal.Decimal `json:"disposable_income" yaml:"disposable_income"`
	Feasible         bool            `json:"feasible" yaml:"feasible"`
	LowConfidence    bool            `json:"low_confidence,omitempty" yaml:"low_confidence,omitempty"`
}

// NudgeKind names the rule that produced a nudge.
type NudgeKind string

const (
	NudgeCashflowRisk    NudgeKind = "cashflow_risk"
	NudgeDuplicateReview NudgeKind = "duplicate_review"
	NudgeBudgetPacing    NudgeKind = "budget_pacing"
	NudgeCategoryGrowth  NudgeKind = "category_growth"
)

// Nudge is a prioritized, human-facing suggestion.
type Nudge struct {
	ID          string            `json:"id" yaml:"id"`
	Kind        NudgeKind         `json:"kind" yaml:"kind"`
	TemplateID  string            `json:"template_id" yaml:"template_id"`
	Priority    int               `json:"priority" yaml:"priority"`
	Refs        []EntityRef       `json:"refs" yaml:"refs"`
	Params      map[string]string `json:"params" yaml:"params"`
	TriggeredAt time.Time         `json:"triggered_at" yaml:"triggered_at"`
	Message     string            `json:"message" yaml:"message"`
}
