// Package debt simulates loan amortization and orders debts for an
// avalanche payoff.
package debt

import (
	"sort"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/models"

	"github.com/shopspring/decimal"
)

// MaxMonths caps a simulated schedule at one hundred years.
const MaxMonths = 1200

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// MonthlyRate converts an APR expressed in percent into a monthly rate.
func MonthlyRate(aprPercent decimal.Decimal) decimal.Decimal {
	return aprPercent.Div(hundred).Div(twelve)
}

// SimulatePayoff returns the amortization schedule of a loan paid with
// payment plus extra every month. Interest is rounded to cents each month
// and the last payment only covers what is left. The schedule is empty when
// the balance or payment is not positive or when the payment cannot cover
// the first month of interest.
func SimulatePayoff(balance, aprPercent, payment, extra decimal.Decimal) []models.PayoffMonth {
	if !balance.IsPositive() || !payment.IsPositive() {
		return nil
	}
	rate := MonthlyRate(aprPercent)
	total := payment.Add(extra)
	if total.LessThanOrEqual(balance.Mul(rate)) {
		return nil
	}

	var schedule []models.PayoffMonth
	current := balance
	for month := 1; current.IsPositive() && month <= MaxMonths; month++ {
		interest := models.Cents(current.Mul(rate))
		principal := total.Sub(interest)
		paid := total
		if principal.GreaterThan(current) {
			principal = current
			paid = interest.Add(principal)
		}
		current = current.Sub(principal)
		schedule = append(schedule, models.PayoffMonth{
			Month:        month,
			Balance:      decimal.Max(decimal.Zero, current),
			Interest:     interest,
			Principal:    principal,
			TotalPayment: paid,
		})
	}
	return schedule
}

// TotalInterest sums the interest of schedule.
func TotalInterest(schedule []models.PayoffMonth) decimal.Decimal {
	total := decimal.Zero
	for _, m := range schedule {
		total = total.Add(m.Interest)
	}
	return total
}

// AvalancheResult is the payoff order of a set of debts. MonthsToPayoff and
// TotalInterest are only computed for a single debt.
type AvalancheResult struct {
	Ordered        []string         `json:"ordered" yaml:"ordered"`
	MonthsToPayoff *int             `json:"months_to_payoff" yaml:"months_to_payoff"`
	TotalInterest  *decimal.Decimal `json:"total_interest" yaml:"total_interest"`
}

// Avalanche orders debts by APR descending, lender ascending on ties.
func Avalanche(debts []models.Debt) (AvalancheResult, error) {
	for i, d := range debts {
		if d.Lender == "" {
			return AvalancheResult{}, &analyticserror.DataError{Record: i, Field: "lender", Reason: "lender is required"}
		}
		if d.APR.IsNegative() {
			return AvalancheResult{}, &analyticserror.DataError{Record: i, Field: "apr", Value: d.APR.String(), Reason: "apr must not be negative"}
		}
	}

	ordered := make([]models.Debt, len(debts))
	copy(ordered, debts)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].APR.Equal(ordered[j].APR) {
			return ordered[i].APR.GreaterThan(ordered[j].APR)
		}
		return ordered[i].Lender < ordered[j].Lender
	})

	res := AvalancheResult{Ordered: make([]string, 0, len(ordered))}
	for _, d := range ordered {
		res.Ordered = append(res.Ordered, d.Lender)
	}
	if len(ordered) == 1 {
		d := ordered[0]
		if schedule := SimulatePayoff(d.Balance, d.APR, d.Payment, decimal.Zero); len(schedule) > 0 {
			months := len(schedule)
			interest := TotalInterest(schedule)
			res.MonthsToPayoff = &months
			res.TotalInterest = &interest
		}
	}
	return res, nil
}
