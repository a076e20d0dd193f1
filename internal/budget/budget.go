// Package budget suggests per-category monthly limits from spending history
// and tracks month-to-date spend against them.
package budget

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/dateutils"
	"fjacquet/fin-insights/internal/models"

	"github.com/shopspring/decimal"
)

// MinHistoryDays is the history a category needs before a limit is suggested.
const MinHistoryDays = 30

// Options controls Suggest.
type Options struct {
	// TrailingMonths is the number of complete months averaged.
	TrailingMonths int
	// AsOf anchors the window; the month containing AsOf is excluded as
	// incomplete. Zero means the date of the latest transaction.
	AsOf time.Time
}

// DefaultOptions returns the three-month trailing window anchored at asOf.
func DefaultOptions(asOf time.Time) Options {
	return Options{TrailingMonths: 3, AsOf: asOf}
}

// Suggest proposes one Budget per expense category: the average monthly
// spend over the trailing complete months, reduced by savingsRate.
// Categories first seen less than MinHistoryDays before AsOf are returned
// with InsufficientData set and no limit. Results are sorted by category.
func Suggest(history []models.Transaction, savingsRate float64, opts Options) ([]models.Budget, error) {
	if savingsRate < 0 || savingsRate >= 1 {
		return nil, &analyticserror.ConfigError{
			Field:  "budget.savings_rate",
			Value:  strconv.FormatFloat(savingsRate, 'f', -1, 64),
			Reason: "must be in [0,1)",
		}
	}
	if opts.TrailingMonths < 1 {
		return nil, &analyticserror.ConfigError{
			Field:  "budget.trailing_months",
			Value:  strconv.Itoa(opts.TrailingMonths),
			Reason: "must be at least 1",
		}
	}

	asOf := anchor(history, opts.AsOf)
	if asOf.IsZero() {
		return nil, nil
	}
	current := dateutils.StartOfMonth(asOf)
	windowStart := dateutils.AddMonths(current, -opts.TrailingMonths)
	keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(savingsRate))

	type categoryStats struct {
		first  time.Time
		window decimal.Decimal
	}
	stats := make(map[string]*categoryStats)
	for _, tx := range history {
		if !tx.IsExpense() || dateutils.Day(tx.Date).After(asOf) {
			continue
		}
		cat := tx.EffectiveCategory()
		s, ok := stats[cat]
		if !ok {
			s = &categoryStats{first: dateutils.Day(tx.Date), window: decimal.Zero}
			stats[cat] = s
		}
		if tx.Date.Before(s.first) {
			s.first = dateutils.Day(tx.Date)
		}
		if !tx.Date.Before(windowStart) && tx.Date.Before(current) {
			s.window = s.window.Add(tx.Spend())
		}
	}

	budgets := make([]models.Budget, 0, len(stats))
	for cat, s := range stats {
		months := observedMonths(s.first, windowStart, opts.TrailingMonths)
		if dateutils.DaysBetween(s.first, asOf) < MinHistoryDays || months == 0 {
			budgets = append(budgets, models.Budget{
				Category:         cat,
				Limit:            decimal.Zero,
				AverageMonthly:   decimal.Zero,
				Period:           models.PeriodMonthly,
				InsufficientData: true,
			})
			continue
		}
		// A category with no spend in the window keeps a zero limit, so it
		// still shows up instead of vanishing from the suggestions.
		avg := s.window.Div(decimal.NewFromInt(int64(months)))
		budgets = append(budgets, models.Budget{
			Category:       cat,
			Limit:          models.Cents(avg.Mul(keep)),
			AverageMonthly: models.Cents(avg),
			MonthsObserved: months,
			Period:         models.PeriodMonthly,
		})
	}

	sort.Slice(budgets, func(i, j int) bool { return budgets[i].Category < budgets[j].Category })
	return budgets, nil
}

// observedMonths counts the window months on or after the month of first.
func observedMonths(first, windowStart time.Time, trailing int) int {
	firstMonth := dateutils.StartOfMonth(first)
	n := 0
	for i := 0; i < trailing; i++ {
		if !dateutils.AddMonths(windowStart, i).Before(firstMonth) {
			n++
		}
	}
	return n
}

// anchor returns asOf truncated to a day, or the latest transaction date.
func anchor(history []models.Transaction, asOf time.Time) time.Time {
	if !asOf.IsZero() {
		return dateutils.Day(asOf)
	}
	var latest time.Time
	for _, tx := range history {
		if tx.Date.After(latest) {
			latest = tx.Date
		}
	}
	if latest.IsZero() {
		return latest
	}
	return dateutils.Day(latest)
}

// Limits indexes budgets with a usable limit by category.
func Limits(budgets []models.Budget) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(budgets))
	for _, b := range budgets {
		if b.InsufficientData || !b.Limit.IsPositive() {
			continue
		}
		out[b.Category] = b.Limit
	}
	return out
}

// String renders a budget for logs and CLI output.
func String(b models.Budget) string {
	if b.InsufficientData {
		return fmt.Sprintf("%s: insufficient data", b.Category)
	}
	return fmt.Sprintf("%s: %s/%s (avg %s over %d months)",
		b.Category, b.Limit.StringFixed(2), b.Period, b.AverageMonthly.StringFixed(2), b.MonthsObserved)
}
