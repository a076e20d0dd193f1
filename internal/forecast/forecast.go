// Package forecast projects the account balance over future horizons from
// the trailing average daily net flow and the known recurring expenses.
//
// Projections are pure functions of their inputs: the clock is never read,
// so the same request always yields the same points.
package forecast

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/dateutils"
	"fjacquet/fin-insights/internal/models"

	"github.com/shopspring/decimal"
)

// PessimisticZ is the one-sided 95% normal quantile applied to the daily
// standard deviation for the pessimistic balance.
const PessimisticZ = 1.645

// DailyPoint is the net flow of one calendar day.
type DailyPoint struct {
	Date time.Time       `json:"date" yaml:"date"`
	Net  decimal.Decimal `json:"net" yaml:"net"`
}

// DailyNetFlow sums history per calendar day from the first to the last
// transaction date. Days without activity are present with a zero net.
func DailyNetFlow(history []models.Transaction) []DailyPoint {
	if len(history) == 0 {
		return nil
	}
	byDay := make(map[time.Time]decimal.Decimal)
	first, last := dateutils.Day(history[0].Date), dateutils.Day(history[0].Date)
	for _, tx := range history {
		d := dateutils.Day(tx.Date)
		byDay[d] = byDay[d].Add(tx.Amount)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	series := make([]DailyPoint, 0, dateutils.DaysBetween(first, last)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		series = append(series, DailyPoint{Date: d, Net: byDay[d]})
	}
	return series
}

// Balance returns opening plus the signed sum of history.
func Balance(history []models.Transaction, opening decimal.Decimal) decimal.Decimal {
	return opening.Add(models.SumAmounts(history))
}

// Request is the input of Project.
type Request struct {
	Series         []DailyPoint
	Recurring      []models.RecurringExpense
	Horizons       []int
	CurrentBalance decimal.Decimal
	// AsOf is the last observed day. Zero means the last day of Series.
	AsOf time.Time
}

// Options controls Project.
type Options struct {
	// TrailingDays is the averaging window, 1 to 365 days.
	TrailingDays int
	// MinHistoryDays below which every point is low confidence.
	MinHistoryDays int
}

// DefaultOptions returns a 90 day window and a 14 day minimum.
func DefaultOptions() Options {
	return Options{TrailingDays: 90, MinHistoryDays: 14}
}

// DefaultHorizons are the standard projection horizons in days.
var DefaultHorizons = []int{30, 60, 90}

// Result is the outcome of Project.
type Result struct {
	AsOf                time.Time              `json:"as_of" yaml:"as_of"`
	CurrentBalance      decimal.Decimal        `json:"current_balance" yaml:"current_balance"`
	Points              []models.ForecastPoint `json:"points" yaml:"points"`
	AvgDailyNet         float64                `json:"avg_daily_net" yaml:"avg_daily_net"`
	StdDailyNet         float64                `json:"std_daily_net" yaml:"std_daily_net"`
	PessimisticDailyNet float64                `json:"pessimistic_daily_net" yaml:"pessimistic_daily_net"`
	SampleDays          int                    `json:"sample_days" yaml:"sample_days"`
	// Insufficient is set when fewer than MinHistoryDays were available.
	Insufficient bool `json:"insufficient" yaml:"insufficient"`
}

// Lowest returns the point with the lowest pessimistic balance.
func (r Result) Lowest() (models.ForecastPoint, bool) {
	if len(r.Points) == 0 {
		return models.ForecastPoint{}, false
	}
	low := r.Points[0]
	for _, p := range r.Points[1:] {
		if p.PessimisticBalance.LessThan(low.PessimisticBalance) {
			low = p
		}
	}
	return low, true
}

func (o Options) validate() error {
	if o.TrailingDays < 1 || o.TrailingDays > 365 {
		return &analyticserror.ConfigError{Field: "forecast.trailing_days", Value: strconv.Itoa(o.TrailingDays), Reason: "must be between 1 and 365"}
	}
	if o.MinHistoryDays < 1 {
		return &analyticserror.ConfigError{Field: "forecast.min_history_days", Value: strconv.Itoa(o.MinHistoryDays), Reason: "must be positive"}
	}
	return nil
}

func normalizeHorizons(horizons []int) ([]int, error) {
	if len(horizons) == 0 {
		horizons = DefaultHorizons
	}
	out := make([]int, 0, len(horizons))
	seen := make(map[int]struct{}, len(horizons))
	for _, h := range horizons {
		if h < 1 {
			return nil, &analyticserror.ConfigError{Field: "forecast.horizons", Value: strconv.Itoa(h), Reason: "horizons must be positive"}
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Ints(out)
	return out, nil
}

// Project computes one ForecastPoint per horizon. The projected balance at h
// days is the current balance plus h times the average daily net, minus the
// recurring charges falling due in (AsOf, AsOf+h] that were not already
// observed inside the averaging window.
func Project(req Request, opts Options) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	horizons, err := normalizeHorizons(req.Horizons)
	if err != nil {
		return Result{}, err
	}

	asOf := dateutils.Day(req.AsOf)
	if req.AsOf.IsZero() {
		if len(req.Series) == 0 {
			return Result{}, &analyticserror.ConfigError{Field: "forecast.as_of", Reason: "required when the series is empty"}
		}
		asOf = dateutils.Day(req.Series[len(req.Series)-1].Date)
	}
	windowStart := asOf.AddDate(0, 0, -(opts.TrailingDays - 1))

	var sample []float64
	for _, p := range req.Series {
		d := dateutils.Day(p.Date)
		if d.Before(windowStart) || d.After(asOf) {
			continue
		}
		v, _ := p.Net.Float64()
		sample = append(sample, v)
	}

	res := Result{
		AsOf:           asOf,
		CurrentBalance: req.CurrentBalance,
		SampleDays:     len(sample),
		Insufficient:   len(sample) < opts.MinHistoryDays,
	}
	if len(sample) > 0 {
		res.AvgDailyNet, res.StdDailyNet = meanStd(sample)
	}
	res.PessimisticDailyNet = res.AvgDailyNet - PessimisticZ*res.StdDailyNet

	avg := decimal.NewFromFloat(res.AvgDailyNet)
	pess := decimal.NewFromFloat(res.PessimisticDailyNet)

	for _, h := range horizons {
		end := asOf.AddDate(0, 0, h)
		recurring := recurringDue(req.Recurring, asOf, end, windowStart)
		days := decimal.NewFromInt(int64(h))

		point := models.ForecastPoint{
			Date:               end,
			HorizonDays:        h,
			HorizonLabel:       fmt.Sprintf("%d days", h),
			ProjectedBalance:   models.Cents(req.CurrentBalance.Add(days.Mul(avg)).Sub(recurring)),
			PessimisticBalance: models.Cents(req.CurrentBalance.Add(days.Mul(pess)).Sub(recurring)),
			RecurringDeducted:  recurring,
		}
		switch {
		case res.Insufficient:
			point.Tier = models.TierLow
		case h <= res.SampleDays:
			point.Tier = models.TierHigh
		default:
			point.Tier = models.TierMedium
		}
		res.Points = append(res.Points, point)
	}
	return res, nil
}

// recurringDue totals the occurrences in (from, to] of every recurring
// expense not observed since windowStart.
func recurringDue(items []models.RecurringExpense, from, to, windowStart time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, r := range items {
		if !r.LastObserved.IsZero() && !dateutils.Day(r.LastObserved).Before(windowStart) {
			continue
		}
		n := len(Occurrences(r, from, to))
		total = total.Add(r.Amount.Mul(decimal.NewFromInt(int64(n))))
	}
	return total
}

// Occurrences lists the due dates of r in (from, to].
func Occurrences(r models.RecurringExpense, from, to time.Time) []time.Time {
	if r.NextDue.IsZero() {
		return nil
	}
	base := dateutils.Day(r.NextDue)
	var dates []time.Time
	for i := 0; i < 10000; i++ {
		d := step(base, r.Cadence, i)
		if d.After(to) {
			break
		}
		if d.After(from) {
			dates = append(dates, d)
		}
	}
	return dates
}

// step returns the n-th due date after base. Calendar cadences are computed
// from base each time and clamp to the month end, so a charge due on the
// 31st stays on the last day of shorter months.
func step(base time.Time, cadence models.Cadence, n int) time.Time {
	switch cadence {
	case models.CadenceWeekly:
		return base.AddDate(0, 0, 7*n)
	case models.CadenceBiweekly:
		return base.AddDate(0, 0, 14*n)
	case models.CadenceQuarterly:
		return dateutils.ShiftMonths(base, 3*n)
	case models.CadenceYearly:
		return dateutils.ShiftMonths(base, 12*n)
	default:
		return dateutils.ShiftMonths(base, n)
	}
}

func meanStd(v []float64) (float64, float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))
	var sq float64
	for _, x := range v {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(v)))
}
