package nudge

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

var asOf = time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func txRef(id string) models.EntityRef {
	return models.EntityRef{Kind: models.RefTransaction, ID: id}
}

func fullInputs() Inputs {
	return Inputs{
		AsOf: asOf,
		Budgets: []models.Budget{
			{Category: models.CategoryGroceries, Limit: dec("400")},
			{Category: models.CategoryShopping, Limit: dec("150")},
		},
		Tracking: []models.TrackingResult{
			{Category: models.CategoryGroceries, Limit: dec("400"), Spent: dec("350"), ElapsedDays: 15, PeriodDays: 30, Status: models.StatusPacingOver, LastActivity: time.Date(2024, 4, 14, 0, 0, 0, 0, time.UTC)},
			{Category: models.CategoryDining, Limit: dec("200"), Spent: dec("20"), Status: models.StatusOnTrack},
		},
		Anomalies: []models.AnomalyFlag{
			{Kind: models.AnomalyDuplicate, Transaction: txRef("d2"), Related: []models.EntityRef{txRef("d1")}, Description: "Gym", Amount: dec("30"), GapDays: 2, Date: time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)},
			{Kind: models.AnomalySpike, Transaction: txRef("s1"), Category: models.CategoryDining, Date: asOf},
			{Kind: models.AnomalyPacing, Transaction: txRef("p1"), Category: models.CategoryGroceries, Amount: dec("700"), Date: time.Date(2024, 4, 14, 0, 0, 0, 0, time.UTC)},
			{Kind: models.AnomalyPacing, Transaction: txRef("p2"), Category: models.CategoryShopping, Amount: dec("310"), Date: time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)},
		},
		Forecast: &forecast.Result{
			AsOf: asOf,
			Points: []models.ForecastPoint{
				{HorizonDays: 30, PessimisticBalance: dec("120"), Tier: models.TierHigh},
				{HorizonDays: 60, PessimisticBalance: dec("-80.5"), Tier: models.TierMedium},
			},
		},
		Trends: []models.CategoryTrend{
			{Category: models.CategoryTravel, PreviousMonth: dec("100"), LastMonth: dec("130"), Growth: dec("0.3"), MonthStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
			{Category: models.CategoryTransport, PreviousMonth: dec("100"), LastMonth: dec("110"), Growth: dec("0.1"), MonthStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func TestGenerate_PriorityOrder(t *testing.T) {
	nudges := Generate(fullInputs(), DefaultThresholds())
	require.Len(t, nudges, 5)

	kinds := make([]models.NudgeKind, len(nudges))
	for i, n := range nudges {
		kinds[i] = n.Kind
	}
	assert.Equal(t, []models.NudgeKind{
		models.NudgeCashflowRisk,
		models.NudgeDuplicateReview,
		models.NudgeBudgetPacing,
		models.NudgeBudgetPacing,
		models.NudgeCategoryGrowth,
	}, kinds)

	// Equal priority: the more recent trigger comes first.
	assert.Equal(t, models.CategoryGroceries, nudges[2].Params["category"])
	assert.Equal(t, models.CategoryShopping, nudges[3].Params["category"])
	for i := 1; i < len(nudges); i++ {
		assert.GreaterOrEqual(t, nudges[i-1].Priority, nudges[i].Priority)
	}
}

func TestGenerate_Cashflow(t *testing.T) {
	nudges := Generate(fullInputs(), DefaultThresholds())
	n := nudges[0]
	assert.Equal(t, PriorityCashflow, n.Priority)
	assert.Equal(t, TemplateCashflowRisk, n.TemplateID)
	assert.Equal(t, []models.EntityRef{{Kind: models.RefHorizon, ID: "60"}}, n.Refs)
	assert.Equal(t, "-80.50", n.Params["balance"])
	assert.Contains(t, n.Message, "-80.50")
	assert.Contains(t, n.Message, "60 days")

	th := DefaultThresholds()
	th.SafetyFloor = dec("-100")
	for _, n := range Generate(fullInputs(), th) {
		assert.NotEqual(t, models.NudgeCashflowRisk, n.Kind)
	}
}

func TestGenerate_Duplicate(t *testing.T) {
	nudges := Generate(fullInputs(), DefaultThresholds())
	n := nudges[1]
	assert.Equal(t, []models.EntityRef{txRef("d2"), txRef("d1")}, n.Refs)
	assert.Equal(t, "Gym was charged 30.00 twice within 2 days. Check whether one charge is a duplicate.", n.Message)
}

func TestGenerate_PacingMergesTrackingAndFlags(t *testing.T) {
	nudges := Generate(fullInputs(), DefaultThresholds())

	groceries := nudges[2]
	assert.Equal(t, []models.EntityRef{{Kind: models.RefCategory, ID: models.CategoryGroceries}, txRef("p1")}, groceries.Refs)
	assert.Equal(t, "350.00", groceries.Params["spent"])
	assert.Equal(t, "15", groceries.Params["days_left"])

	shopping := nudges[3]
	assert.Equal(t, "150.00", shopping.Params["limit"])
	assert.Equal(t, "20", shopping.Params["days_left"])
}

func TestGenerate_Growth(t *testing.T) {
	nudges := Generate(fullInputs(), DefaultThresholds())
	n := nudges[4]
	assert.Equal(t, models.CategoryTravel, n.Params["category"])
	assert.Equal(t, "30", n.Params["growth"])

	th := DefaultThresholds()
	th.GrowthThreshold = dec("0.05")
	var growth int
	for _, n := range Generate(fullInputs(), th) {
		if n.Kind == models.NudgeCategoryGrowth {
			growth++
		}
	}
	assert.Equal(t, 2, growth)
}

func TestGenerate_DeterministicIDs(t *testing.T) {
	first := Generate(fullInputs(), DefaultThresholds())
	second := Generate(fullInputs(), DefaultThresholds())
	require.Equal(t, len(first), len(second))
	seen := make(map[string]bool)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.False(t, seen[first[i].ID])
		seen[first[i].ID] = true
	}
}

func TestGenerate_Empty(t *testing.T) {
	assert.Empty(t, Generate(Inputs{AsOf: asOf}, DefaultThresholds()))
}

func TestValidateRefs(t *testing.T) {
	nudges := Generate(fullInputs(), DefaultThresholds())
	snapshot := models.Snapshot{Transactions: []models.Transaction{{ID: "d1"}, {ID: "d2"}, {ID: "p1"}, {ID: "p2"}}}
	require.NoError(t, ValidateRefs(nudges, snapshot))

	snapshot.Transactions = snapshot.Transactions[:3]
	err := ValidateRefs(nudges, snapshot)
	var dataErr *analyticserror.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "p2", dataErr.Value)
}

func TestRender_UnknownTemplate(t *testing.T) {
	assert.Equal(t, "budget_pacing", Render(models.Nudge{Kind: models.NudgeBudgetPacing, TemplateID: "nope"}))
}
