package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/dateutils"
	"fjacquet/fin-insights/internal/debt"
	"fjacquet/fin-insights/internal/forecast"
	"fjacquet/fin-insights/internal/goal"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var errNotConfigured = errors.New("tool not configured")

type CategorizeRequest struct {
	Description string `json:"description" binding:"required"`
}

type FeedbackRequest struct {
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`
}

type GoalRequest struct {
	Name       string          `json:"name"`
	Target     decimal.Decimal `json:"target"`
	Progress   decimal.Decimal `json:"progress"`
	TargetDate string          `json:"target_date" binding:"required"`
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

type DebtRequest struct {
	Debts []models.Debt `json:"debts"`
	// Extra is added to every monthly payment of the schedules.
	Extra decimal.Decimal `json:"extra"`
}

// DebtSchedule summarizes the payoff of one debt.
type DebtSchedule struct {
	Lender        string               `json:"lender"`
	Months        int                  `json:"months"`
	PaidOff       bool                 `json:"paid_off"`
	TotalInterest decimal.Decimal      `json:"total_interest"`
	Schedule      []models.PayoffMonth `json:"schedule"`
}

func (s *Server) categorize(c *gin.Context) {
	var req CategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.deps.Engine == nil {
		s.fail(c, errNotConfigured)
		return
	}

	category, confidence := s.deps.Engine.CategoryOf(req.Description)
	c.JSON(http.StatusOK, gin.H{
		"description":  req.Description,
		"category":     category,
		"confidence":   confidence,
		"needs_review": confidence < s.deps.MinConfidence,
	})
}

func (s *Server) feedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.deps.Engine == nil {
		s.fail(c, errNotConfigured)
		return
	}
	if err := s.deps.Engine.RecordFeedback(req.Description, req.Category); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "recorded",
		"description": req.Description,
		"category":    req.Category,
	})
}

// run executes a pipeline pass; it writes the error response and returns
// false on failure.
func (s *Server) run(c *gin.Context) (pipeline.Report, bool) {
	if s.deps.Runner == nil {
		s.fail(c, errNotConfigured)
		return pipeline.Report{}, false
	}
	report, err := s.deps.Runner.Run(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return pipeline.Report{}, false
	}
	return report, true
}

// unavailable answers 503 for a module that missed the run deadline.
func unavailable(c *gin.Context, report pipeline.Report, module string) bool {
	if !report.IsDegraded(module) {
		return false
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":    fmt.Sprintf("%s results are not available for this run", module),
		"run_id":   report.RunID,
		"degraded": report.Degraded,
	})
	return true
}

func (s *Server) budgets(c *gin.Context) {
	report, ok := s.run(c)
	if !ok || unavailable(c, report, pipeline.ModuleBudget) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":   report.RunID,
		"as_of":    report.AsOf,
		"budgets":  report.Budgets,
		"tracking": report.Tracking,
		"trends":   report.Trends,
	})
}

func (s *Server) anomalies(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, ok := s.run(c)
	if !ok || unavailable(c, report, pipeline.ModuleAnomaly) {
		return
	}
	flags := report.Anomalies
	if limit > 0 && len(flags) > limit {
		flags = flags[:limit]
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":    report.RunID,
		"as_of":     report.AsOf,
		"total":     len(report.Anomalies),
		"anomalies": flags,
		"truncated": report.Truncated,
	})
}

func (s *Server) forecast(c *gin.Context) {
	report, ok := s.run(c)
	if !ok || unavailable(c, report, pipeline.ModuleForecast) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":   report.RunID,
		"forecast": report.Forecast,
	})
}

func (s *Server) goal(c *gin.Context) {
	var req GoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	targetDate, err := time.Parse(models.DateLayout, req.TargetDate)
	if err != nil {
		s.fail(c, &analyticserror.DataError{Record: -1, Field: "target_date", Value: req.TargetDate, Reason: "expected YYYY-MM-DD", Err: err})
		return
	}

	report, ok := s.run(c)
	if !ok || unavailable(c, report, pipeline.ModuleForecast) {
		return
	}
	projection := forecast.Result{AsOf: dateutils.Day(s.now()), Insufficient: true}
	if report.Forecast != nil {
		projection = *report.Forecast
	}

	opts := s.deps.Goal
	opts.Today = projection.AsOf
	plan, err := goal.Plan(models.Goal{
		Name:       req.Name,
		Target:     req.Target,
		Progress:   req.Progress,
		TargetDate: targetDate,
	}, projection, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": report.RunID, "plan": plan})
}

func (s *Server) nudges(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, ok := s.run(c)
	if !ok {
		return
	}
	nudges := report.Nudges
	if limit > 0 && len(nudges) > limit {
		nudges = nudges[:limit]
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":   report.RunID,
		"nudges":   nudges,
		"degraded": report.Degraded,
	})
}

func (s *Server) ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.deps.Insights == nil {
		s.fail(c, errNotConfigured)
		return
	}
	answer, err := s.deps.Insights.Answer(c.Request.Context(), req.Question)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"question": req.Question,
		"intent":   s.deps.Insights.Classify(req.Question),
		"answer":   answer,
	})
}

func (s *Server) debt(c *gin.Context) {
	var req DebtRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	debts := req.Debts
	if len(debts) == 0 {
		debts = s.deps.Debts
	}

	res, err := debt.Avalanche(debts)
	if err != nil {
		s.fail(c, err)
		return
	}
	schedules := make([]DebtSchedule, 0, len(debts))
	for _, d := range debts {
		schedule := debt.SimulatePayoff(d.Balance, d.APR, d.Payment, req.Extra)
		schedules = append(schedules, DebtSchedule{
			Lender:        d.Lender,
			Months:        len(schedule),
			PaidOff:       len(schedule) > 0 && schedule[len(schedule)-1].Balance.IsZero(),
			TotalInterest: debt.TotalInterest(schedule),
			Schedule:      schedule,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"ordered":          res.Ordered,
		"months_to_payoff": res.MonthsToPayoff,
		"total_interest":   res.TotalInterest,
		"schedules":        schedules,
	})
}

func queryLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer")
	}
	return n, nil
}
