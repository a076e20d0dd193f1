package budget

import (
	"sort"
	"time"

	"fjacquet/fin-insights/internal/dateutils"
	"fjacquet/fin-insights/internal/models"

	"github.com/shopspring/decimal"
)

// TrackOptions controls Track.
type TrackOptions struct {
	// Margin is the tolerated overshoot of the prorated limit, e.g. 0.1.
	Margin float64
	// WatchRatio of the full limit at which a category is put on watch.
	WatchRatio float64
}

// DefaultTrackOptions returns no margin and a watch ratio of 0.8.
func DefaultTrackOptions() TrackOptions {
	return TrackOptions{Margin: 0, WatchRatio: 0.8}
}

// Track compares month-to-date spend with each budget. The limit is
// prorated linearly over the month: limit × elapsed / days in month.
func Track(history []models.Transaction, budgets []models.Budget, today time.Time, opts TrackOptions) []models.TrackingResult {
	if opts.WatchRatio <= 0 {
		opts.WatchRatio = DefaultTrackOptions().WatchRatio
	}
	today = dateutils.Day(today)
	monthStart := dateutils.StartOfMonth(today)
	elapsed := today.Day()
	periodDays := dateutils.DaysInMonth(today)

	spent := make(map[string]decimal.Decimal)
	last := make(map[string]time.Time)
	for _, tx := range history {
		d := dateutils.Day(tx.Date)
		if !tx.IsExpense() || d.Before(monthStart) || d.After(today) {
			continue
		}
		cat := tx.EffectiveCategory()
		spent[cat] = spent[cat].Add(tx.Spend())
		if d.After(last[cat]) {
			last[cat] = d
		}
	}

	margin := decimal.NewFromFloat(1 + opts.Margin)
	watch := decimal.NewFromFloat(opts.WatchRatio)

	results := make([]models.TrackingResult, 0, len(budgets))
	for _, b := range budgets {
		s := spent[b.Category]
		r := models.TrackingResult{
			Category:     b.Category,
			Limit:        b.Limit,
			Spent:        s,
			ElapsedDays:  elapsed,
			PeriodDays:   periodDays,
			LastActivity: last[b.Category],
		}
		if b.InsufficientData || !b.Limit.IsPositive() {
			r.InsufficientData = true
			r.Status = models.StatusInsufficientData
			r.ProratedLimit = decimal.Zero
			r.Remaining = decimal.Zero
			r.PercentUsed = decimal.Zero
			results = append(results, r)
			continue
		}

		prorated := b.Limit.Mul(decimal.NewFromInt(int64(elapsed))).Div(decimal.NewFromInt(int64(periodDays)))
		r.ProratedLimit = models.Cents(prorated)
		r.Remaining = b.Limit.Sub(s)
		r.PercentUsed = s.Div(b.Limit).Round(4)
		r.OverspendRisk = s.GreaterThan(prorated.Mul(margin))

		switch {
		case s.GreaterThan(b.Limit):
			r.Status = models.StatusOverLimit
		case r.OverspendRisk:
			r.Status = models.StatusPacingOver
		case s.GreaterThanOrEqual(b.Limit.Mul(watch)):
			r.Status = models.StatusWatch
		default:
			r.Status = models.StatusOnTrack
		}
		results = append(results, r)
	}
	return results
}

// Trends compares the last two complete months before asOf per category.
// Categories without spend in the earlier month are omitted since their
// growth is undefined.
func Trends(history []models.Transaction, asOf time.Time) []models.CategoryTrend {
	asOf = anchor(history, asOf)
	if asOf.IsZero() {
		return nil
	}
	lastStart := dateutils.AddMonths(asOf, -1)
	prevStart := dateutils.AddMonths(asOf, -2)
	current := dateutils.StartOfMonth(asOf)

	prev := make(map[string]decimal.Decimal)
	last := make(map[string]decimal.Decimal)
	for _, tx := range history {
		if !tx.IsExpense() {
			continue
		}
		switch {
		case !tx.Date.Before(prevStart) && tx.Date.Before(lastStart):
			prev[tx.EffectiveCategory()] = prev[tx.EffectiveCategory()].Add(tx.Spend())
		case !tx.Date.Before(lastStart) && tx.Date.Before(current):
			last[tx.EffectiveCategory()] = last[tx.EffectiveCategory()].Add(tx.Spend())
		}
	}

	trends := make([]models.CategoryTrend, 0, len(prev))
	for cat, p := range prev {
		if !p.IsPositive() {
			continue
		}
		l := last[cat]
		trends = append(trends, models.CategoryTrend{
			Category:      cat,
			PreviousMonth: p,
			LastMonth:     l,
			Growth:        l.Sub(p).Div(p).Round(4),
			MonthStart:    lastStart,
		})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Category < trends[j].Category })
	return trends
}

// Summarize computes the highlights of the latest month with activity on or
// before asOf. A zero asOf considers the whole history.
func Summarize(history []models.Transaction, asOf time.Time) models.Highlights {
	asOf = anchor(history, asOf)
	var month time.Time
	for _, tx := range history {
		if dateutils.Day(tx.Date).After(asOf) {
			continue
		}
		if m := dateutils.StartOfMonth(tx.Date); m.After(month) {
			month = m
		}
	}
	h := models.Highlights{
		Month:            month,
		Income:           decimal.Zero,
		Spend:            decimal.Zero,
		Net:              decimal.Zero,
		TopCategorySpend: decimal.Zero,
		AverageTicket:    decimal.Zero,
	}
	if month.IsZero() {
		return h
	}

	byCategory := make(map[string]decimal.Decimal)
	expenses := 0
	for _, tx := range history {
		if !dateutils.SameMonth(tx.Date, month) || dateutils.Day(tx.Date).After(asOf) {
			continue
		}
		h.Transactions++
		if tx.IsExpense() {
			expenses++
			h.Spend = h.Spend.Add(tx.Spend())
			byCategory[tx.EffectiveCategory()] = byCategory[tx.EffectiveCategory()].Add(tx.Spend())
		} else {
			h.Income = h.Income.Add(tx.Amount)
		}
	}
	h.Net = h.Income.Sub(h.Spend)

	for cat, s := range byCategory {
		if s.GreaterThan(h.TopCategorySpend) || (s.Equal(h.TopCategorySpend) && cat < h.TopCategory) {
			h.TopCategory = cat
			h.TopCategorySpend = s
		}
	}
	if expenses > 0 {
		h.AverageTicket = models.Cents(h.Spend.Div(decimal.NewFromInt(int64(expenses))))
	}
	return h
}
