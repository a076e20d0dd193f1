package goal

import (
	"testing"
	"time"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/forecast"
	"fjacquet/fin-insights/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func steady(avg, pess float64) forecast.Result {
	return forecast.Result{AsOf: today, AvgDailyNet: avg, PessimisticDailyNet: pess, SampleDays: 90}
}

func TestPlan_SpreadsOverMonths(t *testing.T) {
	g := models.Goal{Name: "Holiday", Target: dec("1200"), TargetDate: today.AddDate(0, 0, 180)}

	plan, err := Plan(g, steady(20, 20), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 180, plan.RemainingDays)
	assert.Equal(t, 6, plan.RemainingMonths)
	assert.True(t, plan.MonthlyTarget.Equal(dec("200")), plan.MonthlyTarget.String())
	assert.True(t, plan.Buffer.IsZero())
	assert.True(t, plan.DisposableIncome.Equal(dec("600")))
	assert.True(t, plan.Feasible)
	assert.False(t, plan.LowConfidence)
}

func TestPlan_RoundsUpToCents(t *testing.T) {
	g := models.Goal{Target: dec("100"), TargetDate: today.AddDate(0, 0, 90)}
	plan, err := Plan(g, steady(10, 10), Options{Today: today, BufferRatio: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 3, plan.RemainingMonths)
	assert.Equal(t, "33.34", plan.MonthlyTarget.StringFixed(2))
}

func TestPlan_BufferAndFeasibility(t *testing.T) {
	g := models.Goal{Target: dec("1200"), Progress: dec("600"), TargetDate: today.AddDate(0, 0, 90)}

	// avg 10/day gives 300 disposable; pessimistic 4/day adds 0.5*6*30 = 90.
	plan, err := Plan(g, steady(10, 4), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, plan.RemainingAmount.Equal(dec("600")))
	assert.True(t, plan.MonthlyTarget.Equal(dec("200")))
	assert.True(t, plan.Buffer.Equal(dec("90")), plan.Buffer.String())
	assert.True(t, plan.SafeTarget.Equal(dec("290")))
	assert.True(t, plan.Feasible)

	plan, err = Plan(g, steady(10, 0), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, plan.SafeTarget.Equal(dec("350")))
	assert.False(t, plan.Feasible)
}

func TestPlan_EdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		goal    models.Goal
		months  int
		monthly string
	}{
		{"already reached", models.Goal{Target: dec("500"), Progress: dec("700"), TargetDate: today.AddDate(0, 0, 60)}, 2, "0"},
		{"past target date", models.Goal{Target: dec("300"), TargetDate: today.AddDate(0, 0, -10)}, 1, "300"},
		{"short horizon", models.Goal{Target: dec("300"), TargetDate: today.AddDate(0, 0, 5)}, 1, "300"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Plan(tt.goal, steady(5, 5), DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, tt.months, plan.RemainingMonths)
			assert.True(t, plan.MonthlyTarget.Equal(dec(tt.monthly)), plan.MonthlyTarget.String())
			assert.False(t, plan.MonthlyTarget.IsNegative())
		})
	}
}

func TestPlan_NegativeFlow(t *testing.T) {
	g := models.Goal{Target: dec("100"), TargetDate: today.AddDate(0, 0, 30)}
	res := steady(-5, -8)
	res.Insufficient = true

	plan, err := Plan(g, res, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, plan.DisposableIncome.IsZero())
	assert.False(t, plan.Feasible)
	assert.True(t, plan.LowConfidence)
}

func TestPlan_Invalid(t *testing.T) {
	_, err := Plan(models.Goal{Target: dec("0"), TargetDate: today}, steady(1, 1), DefaultOptions())
	var dataErr *analyticserror.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "target", dataErr.Field)

	_, err = Plan(models.Goal{Target: dec("10")}, steady(1, 1), DefaultOptions())
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "target_date", dataErr.Field)

	_, err = Plan(models.Goal{Target: dec("10"), TargetDate: today}, steady(1, 1), Options{BufferRatio: -1})
	var cfgErr *analyticserror.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "goal.buffer_ratio", cfgErr.Field)
}
