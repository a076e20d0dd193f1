package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"fjacquet/fin-insights/internal/categorizer"
	"fjacquet/fin-insights/internal/dateutils"
	"fjacquet/fin-insights/internal/goal"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/pipeline"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	txns []models.Transaction
}

func (m memorySource) Snapshot(context.Context) (models.Snapshot, error) {
	return models.Snapshot{Transactions: m.txns}, nil
}

func ledger() []models.Transaction {
	var txns []models.Transaction
	for m := 1; m <= 3; m++ {
		start := time.Date(2024, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
		txns = append(txns,
			models.NewTransactionBuilder().WithID(fmt.Sprintf("sal%d", m)).WithDateFromTime(start).WithDescription("Salary").AsIncome(3000).WithCategory(models.CategoryIncome).MustBuild(),
			models.NewTransactionBuilder().WithID(fmt.Sprintf("rent%d", m)).WithDateFromTime(start.AddDate(0, 0, 1)).WithDescription("Rent").AsExpense(1200).WithCategory(models.CategoryRent).MustBuild(),
			models.NewTransactionBuilder().WithID(fmt.Sprintf("gro%d", m)).WithDateFromTime(start.AddDate(0, 0, 9)).WithDescription("Migros").AsExpense(400).WithCategory(models.CategoryGroceries).MustBuild(),
		)
	}
	txns = append(txns,
		models.NewTransactionBuilder().WithID("gym1").WithDate("2024-03-20").WithDescription("City Gym").AsExpense(60).WithCategory("Fitness").MustBuild(),
		models.NewTransactionBuilder().WithID("gym2").WithDate("2024-03-22").WithDescription("City Gym").AsExpense(60).WithCategory("Fitness").MustBuild(),
	)
	return txns
}

func newService(t *testing.T) *Service {
	t.Helper()
	engine, err := categorizer.NewEngine(categorizer.EngineOptions{})
	require.NoError(t, err)
	require.NoError(t, engine.RecordFeedback("Coffee Shop", models.CategoryDining))

	runner := pipeline.NewRunner(memorySource{txns: ledger()}, pipeline.DefaultSettings(), pipeline.Options{})
	return NewService(runner, Options{
		Engine:        engine,
		MinConfidence: 0.5,
		Debts: []models.Debt{
			{Lender: "Visa", Balance: decimal.NewFromInt(2000), APR: decimal.NewFromInt(22), Payment: decimal.NewFromInt(100)},
			{Lender: "Car", Balance: decimal.NewFromInt(8000), APR: decimal.NewFromInt(6), Payment: decimal.NewFromInt(250)},
		},
	})
}

func TestClassify(t *testing.T) {
	s := NewService(nil, Options{})
	tests := []struct {
		question string
		want     Intent
	}{
		{`What category is "UBER TRIP"?`, IntentCategorize},
		{"Am I over budget on groceries?", IntentBudget},
		{"Anything unusual this month?", IntentAnomaly},
		{"What will my balance be next month?", IntentForecast},
		{"How much should I save for a car of 5000 by 2024-12-31?", IntentGoal},
		{"Which loan should I pay off first?", IntentDebt},
		{"Any tips?", IntentNudges},
		{"Hello there", IntentSummary},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Classify(tt.question))
		})
	}
}

func TestAnswer_Categorize(t *testing.T) {
	s := newService(t)
	answer, err := s.Answer(context.Background(), `What category is "Coffee Shop"?`)
	require.NoError(t, err)
	assert.Equal(t, `"Coffee Shop" belongs to Dining with 100% confidence.`, answer)

	answer, err = s.Answer(context.Background(), "categorize")
	require.NoError(t, err)
	assert.Contains(t, answer, "in quotes")
}

func TestAnswer_Summary(t *testing.T) {
	s := newService(t)
	answer, err := s.Answer(context.Background(), "How am I doing?")
	require.NoError(t, err)
	assert.Contains(t, answer, "March 2024")
	assert.Contains(t, answer, "3000.00")
	assert.Contains(t, answer, "Rent")
}

func TestAnswer_Anomaly(t *testing.T) {
	s := newService(t)
	answer, err := s.Answer(context.Background(), "Any duplicate charges?")
	require.NoError(t, err)
	assert.Contains(t, answer, "duplicate")
	assert.Contains(t, answer, "2024-03-22")
}

func TestAnswer_Goal(t *testing.T) {
	s := newService(t)
	answer, err := s.Answer(context.Background(), "I want to save 1200 in 180 days")
	require.NoError(t, err)
	assert.Contains(t, answer, "1200.00")
	assert.Contains(t, answer, "200.00 per month for 6 months")

	answer, err = s.Answer(context.Background(), "save 1200 in 6 months")
	require.NoError(t, err)
	assert.Contains(t, answer, "200.00 per month for 6 months")

	answer, err = s.Answer(context.Background(), "Can I save 1,200 in 6 months?")
	require.NoError(t, err)
	assert.Contains(t, answer, "1200.00")
	assert.Contains(t, answer, "200.00 per month for 6 months")

	answer, err = s.Answer(context.Background(), "help me with a savings goal")
	require.NoError(t, err)
	assert.Contains(t, answer, "how much you want to save")
}

func TestAnswer_Debt(t *testing.T) {
	s := newService(t)
	answer, err := s.Answer(context.Background(), "How do I pay off my debt?")
	require.NoError(t, err)
	assert.Equal(t, "Pay off your debts in this order: Visa, Car.", answer)
}

func TestAnswer_OnlyGroundedNumbers(t *testing.T) {
	s := newService(t)
	questions := []string{
		"summary please",
		"budget status",
		"anything unusual?",
		"forecast my balance",
		"save 750 by 2024-09-30",
		"any advice?",
		"which debt first",
	}
	for _, q := range questions {
		t.Run(q, func(t *testing.T) {
			res, err := s.Resolve(context.Background(), q)
			require.NoError(t, err)
			answer, err := Render(res)
			require.NoError(t, err)
			assert.NotEmpty(t, answer)
			assert.False(t, strings.Contains(answer, "<no value>"))
		})
	}
}

func TestRender_Unavailable(t *testing.T) {
	answer, err := Render(UnavailableResult{For: IntentForecast})
	require.NoError(t, err)
	assert.Equal(t, "The forecast results are not available for this run.", answer)
}

func TestCheckGrounded(t *testing.T) {
	seen := registry{}
	seen.add("spent 42.00")
	require.NoError(t, checkGrounded("you spent 42.00", seen))

	err := checkGrounded("you spent 42.00 of 50.00", seen)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUngrounded))
	assert.Contains(t, err.Error(), "50.00")
}

func TestParseGoal(t *testing.T) {
	today := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	g, ok := parseGoal("save 1'500.50 by 2024-06-30", today)
	require.True(t, ok)
	assert.Equal(t, "1500.5", g.Target.String())
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), g.TargetDate)

	g, ok = parseGoal("save 900 in 1 month", today)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), g.TargetDate)

	g, ok = parseGoal("save 900 in 2 years", today)
	require.True(t, ok)
	assert.Equal(t, today.AddDate(0, 0, 720), g.TargetDate)

	g, ok = parseGoal("save 100", today)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), g.TargetDate)

	_, ok = parseGoal("save something", today)
	assert.False(t, ok)
}

func TestParseGoal_Amounts(t *testing.T) {
	today := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		question string
		want     string
	}{
		{"save 1200 in 6 months", "1200"},
		{"Can I save 1,200 in 6 months?", "1200"},
		{"save 10,000.50 by 2025-01-01", "10000.5"},
		{"save 1'250'000 by 2030-01-01", "1250000"},
		{"save 12,5 in 10 days", "12.5"},
		{"save 99,95 in 10 days", "99.95"},
		{"save 1200.75 in 3 weeks", "1200.75"},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			g, ok := parseGoal(tt.question, today)
			require.True(t, ok)
			assert.Equal(t, tt.want, g.Target.String())
		})
	}
}

func TestParseGoal_MonthsMatchPlanner(t *testing.T) {
	for _, month := range []time.Month{time.January, time.March, time.July} {
		today := time.Date(2024, month, 1, 0, 0, 0, 0, time.UTC)
		g, ok := parseGoal("save 1200 in 6 months", today)
		require.True(t, ok)
		assert.Equal(t, 6*goal.DaysPerMonth, dateutils.DaysBetween(today, g.TargetDate))
	}
}

func TestResolve_NoRunner(t *testing.T) {
	s := NewService(nil, Options{})
	_, err := s.Resolve(context.Background(), "forecast")
	assert.ErrorIs(t, err, ErrNoRunner)

	_, err = s.Resolve(context.Background(), `categorize "x"`)
	assert.ErrorIs(t, err, ErrNoEngine)
}
