package forecast

import (
	"testing"
	"time"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// flat returns n days ending at end, each with the same net.
func flat(end string, n int, net string) []DailyPoint {
	last := day(end)
	series := make([]DailyPoint, n)
	for i := 0; i < n; i++ {
		series[i] = DailyPoint{Date: last.AddDate(0, 0, i-n+1), Net: dec(net)}
	}
	return series
}

func TestDailyNetFlow_FillsGaps(t *testing.T) {
	history := []models.Transaction{
		models.NewTransactionBuilder().WithDate("2024-01-01").WithDescription("Salary").AsIncome(100).MustBuild(),
		models.NewTransactionBuilder().WithDate("2024-01-01").WithDescription("Lunch").AsExpense(30).MustBuild(),
		models.NewTransactionBuilder().WithDate("2024-01-04").WithDescription("Cinema").AsExpense(20).MustBuild(),
	}
	series := DailyNetFlow(history)
	require.Len(t, series, 4)
	assert.True(t, series[0].Net.Equal(dec("70")))
	assert.True(t, series[1].Net.IsZero())
	assert.True(t, series[2].Net.IsZero())
	assert.True(t, series[3].Net.Equal(dec("-20")))
	assert.Equal(t, day("2024-01-04"), series[3].Date)

	assert.Nil(t, DailyNetFlow(nil))
}

func TestBalance(t *testing.T) {
	history := []models.Transaction{
		models.NewTransactionBuilder().WithDate("2024-01-01").WithDescription("Salary").AsIncome(100).MustBuild(),
		models.NewTransactionBuilder().WithDate("2024-01-02").WithDescription("Lunch").AsExpense(30).MustBuild(),
	}
	assert.True(t, Balance(history, dec("1000")).Equal(dec("1070")))
}

func TestProject_ConstantFlow(t *testing.T) {
	res, err := Project(Request{
		Series:         flat("2024-03-31", 90, "10"),
		Horizons:       []int{30, 60, 90},
		CurrentBalance: dec("1000"),
	}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, day("2024-03-31"), res.AsOf)
	assert.Equal(t, 90, res.SampleDays)
	assert.False(t, res.Insufficient)
	assert.InDelta(t, 10.0, res.AvgDailyNet, 1e-9)
	assert.InDelta(t, 0.0, res.StdDailyNet, 1e-9)

	require.Len(t, res.Points, 3)
	assert.Equal(t, "1300", res.Points[0].ProjectedBalance.String())
	assert.Equal(t, "1600", res.Points[1].ProjectedBalance.String())
	assert.Equal(t, "1900", res.Points[2].ProjectedBalance.String())
	assert.Equal(t, day("2024-04-30"), res.Points[0].Date)
	for _, p := range res.Points {
		assert.Equal(t, models.TierHigh, p.Tier)
		assert.True(t, p.ProjectedBalance.Equal(p.PessimisticBalance))
	}
}

func TestProject_PessimisticBelowProjected(t *testing.T) {
	series := flat("2024-03-31", 30, "0")
	for i := range series {
		if i%2 == 0 {
			series[i].Net = dec("20")
		}
	}
	res, err := Project(Request{Series: series, Horizons: []int{30}}, DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 10.0, res.AvgDailyNet, 1e-9)
	assert.InDelta(t, 10.0, res.StdDailyNet, 1e-9)
	assert.InDelta(t, 10-PessimisticZ*10, res.PessimisticDailyNet, 1e-9)

	p := res.Points[0]
	assert.True(t, p.PessimisticBalance.LessThan(p.ProjectedBalance))
	assert.Equal(t, "-193.50", p.PessimisticBalance.StringFixed(2))
}

func TestProject_TrailingWindow(t *testing.T) {
	series := append(flat("2024-01-31", 31, "-100"), flat("2024-03-01", 30, "5")...)
	opts := DefaultOptions()
	opts.TrailingDays = 30

	res, err := Project(Request{Series: series, Horizons: []int{10}}, opts)
	require.NoError(t, err)
	assert.Equal(t, 30, res.SampleDays)
	assert.InDelta(t, 5.0, res.AvgDailyNet, 1e-9)
}

func TestProject_Tiers(t *testing.T) {
	res, err := Project(Request{Series: flat("2024-03-31", 45, "1"), Horizons: []int{30, 60}}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, models.TierHigh, res.Points[0].Tier)
	assert.Equal(t, models.TierMedium, res.Points[1].Tier)

	res, err = Project(Request{Series: flat("2024-03-31", 7, "1"), Horizons: []int{30}}, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, res.Insufficient)
	assert.Equal(t, models.TierLow, res.Points[0].Tier)
}

func TestProject_RecurringDeduction(t *testing.T) {
	rent := models.RecurringExpense{Name: "Rent", Amount: dec("1200"), Cadence: models.CadenceMonthly, NextDue: day("2024-04-01")}
	gym := models.RecurringExpense{Name: "Gym", Amount: dec("50"), Cadence: models.CadenceMonthly, NextDue: day("2024-04-15"), LastObserved: day("2024-03-15")}

	res, err := Project(Request{
		Series:         flat("2024-03-31", 90, "0"),
		Recurring:      []models.RecurringExpense{rent, gym},
		Horizons:       []int{30, 61},
		CurrentBalance: dec("5000"),
	}, DefaultOptions())
	require.NoError(t, err)

	// The gym charge was observed in the window and is already in the average.
	assert.Equal(t, "1200", res.Points[0].RecurringDeducted.String())
	assert.Equal(t, "3800", res.Points[0].ProjectedBalance.String())
	// 61 days covers 2024-04-01 and 2024-05-01.
	assert.Equal(t, "2400", res.Points[1].RecurringDeducted.String())
}

func TestProject_Idempotent(t *testing.T) {
	req := Request{
		Series:         flat("2024-03-31", 60, "3.17"),
		Recurring:      []models.RecurringExpense{{Name: "Phone", Amount: dec("29.90"), Cadence: models.CadenceWeekly, NextDue: day("2024-04-03")}},
		Horizons:       []int{90, 30, 30},
		CurrentBalance: dec("250.55"),
	}
	first, err := Project(req, DefaultOptions())
	require.NoError(t, err)
	second, err := Project(req, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, first.Points, 2)
	assert.Equal(t, 30, first.Points[0].HorizonDays)
	assert.Equal(t, "30 days", first.Points[0].HorizonLabel)
}

func TestProject_Errors(t *testing.T) {
	_, err := Project(Request{Series: flat("2024-03-31", 5, "1"), Horizons: []int{0}}, DefaultOptions())
	var cfgErr *analyticserror.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "forecast.horizons", cfgErr.Field)

	_, err = Project(Request{Series: flat("2024-03-31", 5, "1")}, Options{TrailingDays: 400, MinHistoryDays: 14})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "forecast.trailing_days", cfgErr.Field)

	_, err = Project(Request{}, DefaultOptions())
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "forecast.as_of", cfgErr.Field)
}

func TestProject_EmptySeriesWithAsOf(t *testing.T) {
	res, err := Project(Request{AsOf: day("2024-03-31"), CurrentBalance: dec("100")}, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, res.Insufficient)
	require.Len(t, res.Points, len(DefaultHorizons))
	assert.Equal(t, "100", res.Points[0].ProjectedBalance.String())
}

func TestResult_Lowest(t *testing.T) {
	res, err := Project(Request{Series: flat("2024-03-31", 30, "-1"), CurrentBalance: dec("50")}, DefaultOptions())
	require.NoError(t, err)
	low, ok := res.Lowest()
	require.True(t, ok)
	assert.Equal(t, 90, low.HorizonDays)

	_, ok = Result{}.Lowest()
	assert.False(t, ok)
}

func TestOccurrences(t *testing.T) {
	r := models.RecurringExpense{Amount: dec("10"), Cadence: models.CadenceMonthly, NextDue: day("2024-01-31")}
	dates := Occurrences(r, day("2024-01-01"), day("2024-04-30"))
	require.Len(t, dates, 4)
	assert.Equal(t, day("2024-01-31"), dates[0])
	assert.Equal(t, day("2024-02-29"), dates[1])
	assert.Equal(t, day("2024-04-30"), dates[3])

	weekly := models.RecurringExpense{Cadence: models.CadenceWeekly, NextDue: day("2024-01-01")}
	assert.Len(t, Occurrences(weekly, day("2024-01-01"), day("2024-01-29")), 4)

	assert.Empty(t, Occurrences(models.RecurringExpense{}, day("2024-01-01"), day("2024-12-31")))
}

func TestMarkObserved(t *testing.T) {
	recurring := []models.RecurringExpense{
		{Name: "Netflix", Amount: dec("15.99"), Cadence: models.CadenceMonthly, NextDue: day("2024-04-12")},
		{Name: "Landlord", Match: "rent payment", Amount: dec("1200"), Cadence: models.CadenceMonthly, NextDue: day("2024-04-01")},
		{Name: "Gym", Amount: dec("50"), Cadence: models.CadenceMonthly, NextDue: day("2024-04-15")},
	}
	history := []models.Transaction{
		models.NewTransactionBuilder().WithDate("2024-02-12").WithDescription("NETFLIX.COM").AsExpense(15.99).MustBuild(),
		models.NewTransactionBuilder().WithDate("2024-03-12").WithDescription("NETFLIX.COM").AsExpense(15.99).MustBuild(),
		models.NewTransactionBuilder().WithDate("2024-03-01").WithDescription("Rent Payment March").AsExpense(1200).MustBuild(),
		models.NewTransactionBuilder().WithDate("2023-12-15").WithDescription("Gym").AsExpense(50).MustBuild(),
	}

	out := MarkObserved(recurring, history, day("2024-03-31"), 90)
	require.Len(t, out, 3)
	assert.Equal(t, day("2024-03-12"), out[0].LastObserved)
	assert.Equal(t, day("2024-03-01"), out[1].LastObserved)
	assert.True(t, out[2].LastObserved.IsZero())
	assert.True(t, recurring[0].LastObserved.IsZero(), "input must not be modified")
}
