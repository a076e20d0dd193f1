// Package anomaly flags unusual transactions: per-category spending spikes,
// likely duplicate charges and categories pacing over their monthly budget.
package anomaly

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/budget"
	"fjacquet/fin-insights/internal/categorizer"
	"fjacquet/fin-insights/internal/dateutils"
	"fjacquet/fin-insights/internal/models"

	"github.com/shopspring/decimal"
)

// Config holds the detector thresholds.
type Config struct {
	// SpikeWindow is the number of preceding expenses in a category used as
	// the baseline of the spike detector.
	SpikeWindow int
	// SpikeMinSamples is the smallest baseline that is scored.
	SpikeMinSamples int
	// SpikeZThreshold flags expenses whose |z| exceeds it.
	SpikeZThreshold float64
	// DuplicateWindowDays is the largest gap between two identical charges
	// reported as a duplicate.
	DuplicateWindowDays int
	// PacingMargin is the tolerated overshoot of the month-end estimate.
	PacingMargin float64

	// Budgets used by the pacing detector. Nil means suggest them from the
	// same history with SavingsRate and TrailingMonths.
	Budgets        []models.Budget
	SavingsRate    float64
	TrailingMonths int

	// AsOf is the day the pacing detector evaluates. Zero means the date of
	// the latest transaction.
	AsOf time.Time
	// MaxHistory bounds the number of most recent transactions analysed.
	// Zero means unbounded.
	MaxHistory int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		SpikeWindow:         30,
		SpikeMinSamples:     5,
		SpikeZThreshold:     2.5,
		DuplicateWindowDays: 7,
		PacingMargin:        0,
		TrailingMonths:      3,
	}
}

func (c Config) validate() error {
	switch {
	case c.SpikeMinSamples < 2:
		return &analyticserror.ConfigError{Field: "anomaly.spike_min_samples", Value: strconv.Itoa(c.SpikeMinSamples), Reason: "must be at least 2"}
	case c.SpikeWindow < c.SpikeMinSamples:
		return &analyticserror.ConfigError{Field: "anomaly.spike_window", Value: strconv.Itoa(c.SpikeWindow), Reason: "must be at least spike_min_samples"}
	case c.SpikeZThreshold <= 0:
		return &analyticserror.ConfigError{Field: "anomaly.spike_z_threshold", Value: strconv.FormatFloat(c.SpikeZThreshold, 'f', -1, 64), Reason: "must be positive"}
	case c.DuplicateWindowDays < 0:
		return &analyticserror.ConfigError{Field: "anomaly.duplicate_window_days", Value: strconv.Itoa(c.DuplicateWindowDays), Reason: "must not be negative"}
	case c.PacingMargin < 0:
		return &analyticserror.ConfigError{Field: "anomaly.pacing_margin", Value: strconv.FormatFloat(c.PacingMargin, 'f', -1, 64), Reason: "must not be negative"}
	case c.MaxHistory < 0:
		return &analyticserror.ConfigError{Field: "limits.max_history", Value: strconv.Itoa(c.MaxHistory), Reason: "must not be negative"}
	}
	return nil
}

// Result is the outcome of Detect.
type Result struct {
	Flags []models.AnomalyFlag
	// Budgets are the limits the pacing detector used.
	Budgets []models.Budget
	// Analysed is the number of transactions inspected.
	Analysed int
	// Truncated is set when MaxHistory dropped older transactions.
	Truncated bool
}

// Detect runs every detector over history. Flags are ordered by severity
// descending, then date and sequence ascending. Every reference points at a
// transaction of history.
func Detect(history []models.Transaction, cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}

	txns := chronological(history)
	var res Result
	if cfg.MaxHistory > 0 && len(txns) > cfg.MaxHistory {
		txns = txns[len(txns)-cfg.MaxHistory:]
		res.Truncated = true
	}
	res.Analysed = len(txns)

	res.Flags = append(res.Flags, spikes(txns, cfg)...)
	res.Flags = append(res.Flags, duplicates(txns, cfg)...)

	pacing, budgets, err := pacing(txns, cfg)
	if err != nil {
		return Result{}, err
	}
	res.Flags = append(res.Flags, pacing...)
	res.Budgets = budgets

	sort.SliceStable(res.Flags, func(i, j int) bool {
		a, b := res.Flags[i], res.Flags[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.Kind < b.Kind
	})
	return res, nil
}

// chronological returns a copy of history ordered by date then sequence.
func chronological(history []models.Transaction) []models.Transaction {
	txns := make([]models.Transaction, len(history))
	copy(txns, history)
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].Seq < txns[j].Seq
	})
	return txns
}

func spikes(txns []models.Transaction, cfg Config) []models.AnomalyFlag {
	baselines := make(map[string][]float64)
	var flags []models.AnomalyFlag

	for _, tx := range txns {
		if !tx.IsExpense() {
			continue
		}
		cat := tx.EffectiveCategory()
		value, _ := tx.Spend().Float64()
		baseline := baselines[cat]

		if len(baseline) >= cfg.SpikeMinSamples {
			mean, std := meanStd(baseline)
			if floor := 0.01 * math.Abs(mean); std < floor {
				std = floor
			}
			if std > 0 {
				z := (value - mean) / std
				if math.Abs(z) > cfg.SpikeZThreshold {
					flags = append(flags, models.AnomalyFlag{
						Transaction: tx.Ref(),
						Kind:        models.AnomalySpike,
						Category:    cat,
						Severity:    math.Abs(z) / cfg.SpikeZThreshold,
						Explanation: fmt.Sprintf("%s spend of %s is %.1f standard deviations from the average of %s over the previous %d expenses",
							cat, tx.Spend().StringFixed(2), z, strconv.FormatFloat(mean, 'f', 2, 64), len(baseline)),
						Description: tx.Description,
						Date:        tx.Date,
						Seq:         tx.Seq,
						Amount:      tx.Spend(),
					})
				}
			}
		}

		baseline = append(baseline, value)
		if len(baseline) > cfg.SpikeWindow {
			baseline = baseline[len(baseline)-cfg.SpikeWindow:]
		}
		baselines[cat] = baseline
	}
	return flags
}

// meanStd returns the mean and population standard deviation of v.
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

func duplicates(txns []models.Transaction, cfg Config) []models.AnomalyFlag {
	type key struct {
		description string
		amount      string
	}
	seen := make(map[key][]models.Transaction)
	var flags []models.AnomalyFlag
	window := cfg.DuplicateWindowDays

	for _, tx := range txns {
		if !tx.IsExpense() {
			continue
		}
		k := key{description: categorizer.FeedbackKey(tx.Description), amount: tx.Amount.StringFixed(2)}
		if k.description == "" {
			continue
		}

		var related []models.EntityRef
		minGap := -1
		for _, prev := range seen[k] {
			gap := dateutils.DaysBetween(prev.Date, tx.Date)
			if gap > window {
				continue
			}
			related = append(related, prev.Ref())
			if minGap < 0 || gap < minGap {
				minGap = gap
			}
		}
		seen[k] = append(seen[k], tx)
		if len(related) == 0 {
			continue
		}

		severity := 2.0
		if window > 0 {
			severity = 1 + float64(window-minGap)/float64(window)
		}
		flags = append(flags, models.AnomalyFlag{
			Transaction: tx.Ref(),
			Related:     related,
			Kind:        models.AnomalyDuplicate,
			Category:    tx.EffectiveCategory(),
			Severity:    severity,
			Explanation: fmt.Sprintf("%q for %s repeats a charge from %d days earlier",
				tx.Description, tx.Spend().StringFixed(2), minGap),
			Description: tx.Description,
			Date:        tx.Date,
			Seq:         tx.Seq,
			GapDays:     minGap,
			Amount:      tx.Spend(),
		})
	}
	return flags
}

func pacing(txns []models.Transaction, cfg Config) ([]models.AnomalyFlag, []models.Budget, error) {
	if len(txns) == 0 {
		return nil, cfg.Budgets, nil
	}
	asOf := dateutils.Day(cfg.AsOf)
	if cfg.AsOf.IsZero() {
		asOf = dateutils.Day(txns[len(txns)-1].Date)
	}

	budgets := cfg.Budgets
	if budgets == nil {
		trailing := cfg.TrailingMonths
		if trailing < 1 {
			trailing = DefaultConfig().TrailingMonths
		}
		var err error
		budgets, err = budget.Suggest(txns, cfg.SavingsRate, budget.Options{TrailingMonths: trailing, AsOf: asOf})
		if err != nil {
			return nil, nil, err
		}
	}
	limits := budget.Limits(budgets)

	monthStart := dateutils.StartOfMonth(asOf)
	spent := make(map[string]decimal.Decimal)
	latest := make(map[string]models.Transaction)
	for _, tx := range txns {
		d := dateutils.Day(tx.Date)
		if !tx.IsExpense() || d.Before(monthStart) || d.After(asOf) {
			continue
		}
		cat := tx.EffectiveCategory()
		spent[cat] = spent[cat].Add(tx.Spend())
		latest[cat] = tx
	}

	elapsed := decimal.NewFromInt(int64(asOf.Day()))
	periodDays := decimal.NewFromInt(int64(dateutils.DaysInMonth(asOf)))
	margin := decimal.NewFromFloat(1 + cfg.PacingMargin)

	cats := make([]string, 0, len(spent))
	for cat := range spent {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var flags []models.AnomalyFlag
	for _, cat := range cats {
		limit, ok := limits[cat]
		if !ok {
			continue
		}
		estimate := spent[cat].Mul(periodDays).Div(elapsed)
		if !estimate.GreaterThan(limit.Mul(margin)) {
			continue
		}
		tx := latest[cat]
		severity, _ := estimate.Div(limit).Float64()
		flags = append(flags, models.AnomalyFlag{
			Transaction: tx.Ref(),
			Kind:        models.AnomalyPacing,
			Category:    cat,
			Severity:    severity,
			Explanation: fmt.Sprintf("%s is on pace for %s this month against a limit of %s",
				cat, models.Cents(estimate).StringFixed(2), limit.StringFixed(2)),
			Description: tx.Description,
			Date:        tx.Date,
			Seq:         tx.Seq,
			Amount:      models.Cents(estimate),
		})
	}
	return flags, budgets, nil
}
