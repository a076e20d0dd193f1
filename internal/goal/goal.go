// Package goal turns a savings target and a cash-flow forecast into a
// monthly contribution plan.
package goal

import (
	"math"
	"strconv"
	"time"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/dateutils"
	"fjacquet/fin-insights/internal/forecast"
	"fjacquet/fin-insights/internal/models"

	"github.com/shopspring/decimal"
)

// DaysPerMonth is the month length used to spread a goal over its horizon.
const DaysPerMonth = 30

// Options controls Plan.
type Options struct {
	// Today is the planning day. Zero means the forecast AsOf day.
	Today time.Time
	// BufferRatio scales the volatility buffer added to the monthly target.
	BufferRatio float64
}

// DefaultOptions returns a 0.5 buffer ratio.
func DefaultOptions() Options {
	return Options{BufferRatio: 0.5}
}

// Plan computes the monthly contribution needed to reach g by its target
// date and checks it against the disposable income implied by f.
func Plan(g models.Goal, f forecast.Result, opts Options) (models.GoalPlan, error) {
	if opts.BufferRatio < 0 {
		return models.GoalPlan{}, &analyticserror.ConfigError{Field: "goal.buffer_ratio", Value: strconv.FormatFloat(opts.BufferRatio, 'f', -1, 64), Reason: "must not be negative"}
	}
	if !g.Target.IsPositive() {
		return models.GoalPlan{}, &analyticserror.DataError{Record: -1, Field: "target", Value: g.Target.String(), Reason: "goal target must be positive"}
	}
	if g.Progress.IsNegative() {
		return models.GoalPlan{}, &analyticserror.DataError{Record: -1, Field: "progress", Value: g.Progress.String(), Reason: "goal progress must not be negative"}
	}
	if g.TargetDate.IsZero() {
		return models.GoalPlan{}, &analyticserror.DataError{Record: -1, Field: "target_date", Reason: "goal target date is required"}
	}

	today := opts.Today
	if today.IsZero() {
		today = f.AsOf
	}
	days := dateutils.DaysBetween(today, g.TargetDate)
	if days < 0 {
		days = 0
	}
	months := int(math.Ceil(float64(days) / DaysPerMonth))
	if months < 1 {
		months = 1
	}

	remaining := g.Target.Sub(g.Progress)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	monthly := models.RoundUpCents(remaining.Div(decimal.NewFromInt(int64(months))))

	spread := f.AvgDailyNet - f.PessimisticDailyNet
	buffer := models.RoundUpCents(decimal.NewFromFloat(opts.BufferRatio * spread * DaysPerMonth))
	disposable := decimal.Zero
	if f.AvgDailyNet > 0 {
		disposable = models.Cents(decimal.NewFromFloat(f.AvgDailyNet * DaysPerMonth))
	}
	safe := monthly.Add(buffer)

	return models.GoalPlan{
		Goal:             g,
		RemainingAmount:  remaining,
		RemainingDays:    days,
		RemainingMonths:  months,
		MonthlyTarget:    monthly,
		SafeTarget:       safe,
		Buffer:           buffer,
		DisposableIncome: disposable,
		Feasible:         safe.LessThanOrEqual(disposable),
		LowConfidence:    f.Insufficient,
	}, nil
}
