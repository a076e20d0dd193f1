package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fjacquet/fin-insights/internal/categorizer"
	"fjacquet/fin-insights/internal/insights"
	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

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

func debts() []models.Debt {
	return []models.Debt{
		{Lender: "Car", Balance: decimal.NewFromInt(8000), APR: decimal.NewFromInt(6), Payment: decimal.NewFromInt(250)},
		{Lender: "Visa", Balance: decimal.NewFromInt(2000), APR: decimal.NewFromInt(22), Payment: decimal.NewFromInt(100)},
	}
}

func newTestServer(t *testing.T) (*Server, *logging.MockLogger) {
	t.Helper()
	engine, err := categorizer.NewEngine(categorizer.EngineOptions{})
	require.NoError(t, err)
	require.NoError(t, engine.RecordFeedback("Coffee Shop", models.CategoryDining))

	runner := pipeline.NewRunner(memorySource{txns: ledger()}, pipeline.DefaultSettings(), pipeline.Options{})
	service := insights.NewService(runner, insights.Options{Engine: engine, MinConfidence: 0.5, Debts: debts()})

	logger := logging.NewMockLogger()
	s := NewServer(Deps{
		Engine:        engine,
		Runner:        runner,
		Insights:      service,
		Debts:         debts(),
		MinConfidence: 0.5,
	}, Options{
		AllowedOrigins: []string{"http://localhost:8501"},
		Logger:         logger,
		Version:        "test",
		Now:            func() time.Time { return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC) },
	})
	return s, logger
}

func do(t *testing.T, s *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w, body := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, "2024-04-01T12:00:00Z", body["time"])
}

func TestCategorize(t *testing.T) {
	s, _ := newTestServer(t)

	w, body := do(t, s, http.MethodPost, "/tools/categorize", CategorizeRequest{Description: "coffee shop"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CategoryDining, body["category"])
	assert.Equal(t, 1.0, body["confidence"])
	assert.Equal(t, false, body["needs_review"])

	w, _ = do(t, s, http.MethodPost, "/tools/categorize", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedback(t *testing.T) {
	s, _ := newTestServer(t)

	w, body := do(t, s, http.MethodPost, "/tools/feedback", FeedbackRequest{Description: "Kiosk 42", Category: models.CategoryShopping})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "recorded", body["status"])

	_, body = do(t, s, http.MethodPost, "/tools/categorize", CategorizeRequest{Description: "KIOSK 42"})
	assert.Equal(t, models.CategoryShopping, body["category"])

	// Descriptions without usable text are rejected by the engine.
	w, body = do(t, s, http.MethodPost, "/tools/feedback", FeedbackRequest{Description: "***", Category: models.CategoryShopping})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "description")
}

func TestBudgets(t *testing.T) {
	s, _ := newTestServer(t)
	w, body := do(t, s, http.MethodGet, "/tools/budgets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, body["run_id"])
	assert.NotEmpty(t, body["budgets"])
	assert.NotEmpty(t, body["tracking"])
}

func TestAnomalies(t *testing.T) {
	s, _ := newTestServer(t)
	w, body := do(t, s, http.MethodGet, "/tools/anomalies?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	flags, ok := body["anomalies"].([]interface{})
	require.True(t, ok)
	require.Len(t, flags, 1)
	assert.GreaterOrEqual(t, body["total"], 1.0)

	w, _ = do(t, s, http.MethodGet, "/tools/anomalies?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestForecast(t *testing.T) {
	s, _ := newTestServer(t)
	w, body := do(t, s, http.MethodGet, "/tools/forecast", nil)
	require.Equal(t, http.StatusOK, w.Code)

	f, ok := body["forecast"].(map[string]interface{})
	require.True(t, ok)
	points, ok := f["points"].([]interface{})
	require.True(t, ok)
	assert.Len(t, points, 3)
}

func TestGoal(t *testing.T) {
	s, _ := newTestServer(t)
	req := map[string]interface{}{"name": "Holiday", "target": 1200, "progress": 0, "target_date": "2024-09-18"}

	w, _ := do(t, s, http.MethodPost, "/tools/goal", req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Plan models.GoalPlan `json:"plan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 180, resp.Plan.RemainingDays)
	assert.Equal(t, 6, resp.Plan.RemainingMonths)
	assert.True(t, resp.Plan.MonthlyTarget.Equal(decimal.NewFromInt(200)), resp.Plan.MonthlyTarget.String())

	req["target_date"] = "18/09/2024"
	w, body := do(t, s, http.MethodPost, "/tools/goal", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "target_date")

	req["target_date"] = "2024-09-18"
	req["target"] = 0
	w, _ = do(t, s, http.MethodPost, "/tools/goal", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNudges(t *testing.T) {
	s, _ := newTestServer(t)
	w, body := do(t, s, http.MethodGet, "/tools/nudges", nil)
	require.Equal(t, http.StatusOK, w.Code)

	nudges, ok := body["nudges"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, nudges)
	kinds := make([]string, 0, len(nudges))
	for _, n := range nudges {
		kinds = append(kinds, n.(map[string]interface{})["kind"].(string))
	}
	assert.Contains(t, kinds, string(models.NudgeDuplicateReview))
}

func TestAsk(t *testing.T) {
	s, _ := newTestServer(t)
	w, body := do(t, s, http.MethodPost, "/tools/ask", AskRequest{Question: "Which debt should I pay first?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(insights.IntentDebt), body["intent"])
	assert.Equal(t, "Pay off your debts in this order: Visa, Car.", body["answer"])

	w, _ = do(t, s, http.MethodPost, "/tools/ask", map[string]string{"question": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDebt(t *testing.T) {
	s, _ := newTestServer(t)

	w, body := do(t, s, http.MethodPost, "/tools/debt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"Visa", "Car"}, body["ordered"])
	assert.Nil(t, body["months_to_payoff"])
	assert.Len(t, body["schedules"], 2)

	single := DebtRequest{Debts: []models.Debt{
		{Lender: "Card", Balance: decimal.NewFromInt(1000), APR: decimal.NewFromInt(12), Payment: decimal.NewFromInt(500)},
	}}
	w, body = do(t, s, http.MethodPost, "/tools/debt", single)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, body["months_to_payoff"])
	assert.Equal(t, "15.25", body["total_interest"])

	invalid := DebtRequest{Debts: []models.Debt{{Lender: "", Balance: decimal.NewFromInt(10)}}}
	w, _ = do(t, s, http.MethodPost, "/tools/debt", invalid)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotConfigured(t *testing.T) {
	s := NewServer(Deps{}, Options{})
	for _, path := range []string{"/tools/budgets", "/tools/nudges"} {
		w, body := do(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.Equal(t, "tool not configured", body["error"])
	}
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/tools/ask", nil)
	req.Header.Set("Origin", "http://localhost:8501")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:8501", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogging(t *testing.T) {
	s, logger := newTestServer(t)
	do(t, s, http.MethodGet, "/health", nil)
	assert.True(t, logger.HasEntry("DEBUG", "Request served"))
}
