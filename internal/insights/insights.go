// Package insights answers free-form questions by routing them to one of the
// analytics modules and filling a template with the module's result. Answers
// only print numbers that the module returned.
package insights

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fjacquet/fin-insights/internal/categorizer"
	"fjacquet/fin-insights/internal/dateutils"
	"fjacquet/fin-insights/internal/debt"
	"fjacquet/fin-insights/internal/goal"
	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/pipeline"

	"github.com/shopspring/decimal"
)

// MaxAnomalies is the number of flags quoted in an anomaly answer.
const MaxAnomalies = 5

var (
	// ErrNoEngine is returned for categorize questions when no engine is wired.
	ErrNoEngine = errors.New("no categorization engine configured")
	// ErrNoRunner is returned for questions that need an analytics run.
	ErrNoRunner = errors.New("no analytics runner configured")
)

// Route maps question keywords to an intent. Routes are tried in order and
// the first route with a keyword contained in the question wins.
type Route struct {
	Intent   Intent
	Keywords []string
}

// DefaultRoutes is the standard routing table. Questions matching no route
// get the monthly summary.
var DefaultRoutes = []Route{
	{IntentCategorize, []string{"categorize", "categorise", "category of", "category for", "classify", "what category"}},
	{IntentGoal, []string{"save for", "saving for", "save up", "goal", "how much should i save", "save "}},
	{IntentDebt, []string{"debt", "loan", "pay off", "payoff", "avalanche", "credit card"}},
	{IntentAnomaly, []string{"unusual", "anomal", "duplicate", "suspicious", "spike", "strange", "weird", "fraud"}},
	{IntentForecast, []string{"forecast", "balance", "cash flow", "cashflow", "next month", "projection", "runway", "run out"}},
	{IntentBudget, []string{"budget", "overspend", "over spend", "limit", "pacing", "on track"}},
	{IntentNudges, []string{"nudge", "tip", "advice", "suggest", "recommend", "should i", "what can i do"}},
	{IntentSummary, []string{"summary", "summarize", "overview", "how am i doing", "spending", "income"}},
}

// Options wires the collaborators of a Service.
type Options struct {
	Engine *categorizer.Engine
	// MinConfidence below which a categorize answer asks for review.
	MinConfidence float64
	Debts         []models.Debt
	Goal          goal.Options
	Routes        []Route
	Logger        logging.Logger
}

// Service answers questions.
type Service struct {
	runner        *pipeline.Runner
	engine        *categorizer.Engine
	minConfidence float64
	debts         []models.Debt
	goal          goal.Options
	routes        []Route
	logger        logging.Logger
}

// NewService creates a Service that analyses runs of runner.
func NewService(runner *pipeline.Runner, opts Options) *Service {
	routes := opts.Routes
	if len(routes) == 0 {
		routes = DefaultRoutes
	}
	goalOpts := opts.Goal
	if goalOpts.BufferRatio == 0 {
		goalOpts.BufferRatio = goal.DefaultOptions().BufferRatio
	}
	return &Service{
		runner:        runner,
		engine:        opts.Engine,
		minConfidence: opts.MinConfidence,
		debts:         opts.Debts,
		goal:          goalOpts,
		routes:        routes,
		logger:        logging.OrNop(opts.Logger),
	}
}

// Classify returns the intent of question.
func (s *Service) Classify(question string) Intent {
	q := " " + strings.ToLower(strings.Join(strings.Fields(question), " ")) + " "
	for _, r := range s.routes {
		for _, kw := range r.Keywords {
			if strings.Contains(q, kw) {
				return r.Intent
			}
		}
	}
	return IntentSummary
}

// Answer resolves and renders question.
func (s *Service) Answer(ctx context.Context, question string) (string, error) {
	res, err := s.Resolve(ctx, question)
	if err != nil {
		return "", err
	}
	answer, err := Render(res)
	if err != nil {
		s.logger.WithError(err).Error("Failed to render answer",
			logging.F(logging.FieldIntent, string(res.Intent())))
		return "", err
	}
	return answer, nil
}

// Resolve routes question and returns the structured result of the matching
// module without rendering it.
func (s *Service) Resolve(ctx context.Context, question string) (Result, error) {
	intent := s.Classify(question)
	s.logger.Debug("Routing question", logging.F(logging.FieldIntent, string(intent)))

	switch intent {
	case IntentCategorize:
		return s.categorize(ctx, question)
	case IntentDebt:
		return s.debt()
	}

	if s.runner == nil {
		return nil, ErrNoRunner
	}
	report, err := s.runner.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics run failed: %w", err)
	}

	switch intent {
	case IntentBudget:
		if report.IsDegraded(pipeline.ModuleBudget) {
			return UnavailableResult{For: intent}, nil
		}
		return BudgetResult{AsOf: report.AsOf, Tracking: report.Tracking}, nil
	case IntentAnomaly:
		if report.IsDegraded(pipeline.ModuleAnomaly) {
			return UnavailableResult{For: intent}, nil
		}
		flags := report.Anomalies
		if len(flags) > MaxAnomalies {
			flags = flags[:MaxAnomalies]
		}
		return AnomalyResult{Flags: flags, Total: len(report.Anomalies)}, nil
	case IntentForecast:
		if report.Forecast == nil {
			return UnavailableResult{For: intent}, nil
		}
		return ForecastResult{Result: *report.Forecast}, nil
	case IntentGoal:
		if report.Forecast == nil {
			return UnavailableResult{For: intent}, nil
		}
		g, ok := parseGoal(question, report.AsOf)
		if !ok {
			return GoalResult{Missing: true}, nil
		}
		opts := s.goal
		opts.Today = report.AsOf
		plan, err := goal.Plan(g, *report.Forecast, opts)
		if err != nil {
			return nil, err
		}
		return GoalResult{Plan: plan}, nil
	case IntentNudges:
		return NudgesResult{Nudges: report.Nudges}, nil
	default:
		return SummaryResult{Highlights: report.Highlights}, nil
	}
}

var quoted = regexp.MustCompile(`["“]([^"”]+)["”]`)

func (s *Service) categorize(ctx context.Context, question string) (Result, error) {
	if s.engine == nil {
		return nil, ErrNoEngine
	}
	desc := extractDescription(question)
	if desc == "" {
		return CategorizeResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	category, confidence := s.engine.CategoryOf(desc)
	s.logger.Debug("Categorized question description",
		logging.F(logging.FieldCategory, category),
		logging.F(logging.FieldConfidence, confidence))
	return CategorizeResult{
		Description: desc,
		Category:    category,
		Confidence:  confidence,
		NeedsReview: confidence < s.minConfidence,
	}, nil
}

// extractDescription returns the quoted part of question, or what follows
// the last "of", "for" or "categorize".
func extractDescription(question string) string {
	if m := quoted.FindStringSubmatch(question); m != nil {
		return strings.TrimSpace(m[1])
	}
	lower := strings.ToLower(question)
	for _, marker := range []string{"category of ", "category for ", "categorize ", "categorise ", "classify "} {
		if i := strings.LastIndex(lower, marker); i >= 0 {
			return strings.Trim(strings.TrimSpace(question[i+len(marker):]), "?.!")
		}
	}
	return ""
}

func (s *Service) debt() (Result, error) {
	res, err := debt.Avalanche(s.debts)
	if err != nil {
		return nil, err
	}
	out := DebtResult{Ordered: res.Ordered}
	if res.MonthsToPayoff != nil && res.TotalInterest != nil {
		out.HasPayoff = true
		out.Months = *res.MonthsToPayoff
		out.Interest = *res.TotalInterest
	}
	return out, nil
}

var (
	isoDate    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	relative   = regexp.MustCompile(`in (\d+) (day|days|week|weeks|month|months|year|years)`)
	amountExpr = regexp.MustCompile(`\d{1,3}(?:[,']\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?`)
)

// parseGoal reads a target amount and date from question. Without a date the
// goal is due in one year.
func parseGoal(question string, today time.Time) (models.Goal, bool) {
	text := strings.ToLower(question)
	target := dateutils.Day(today).AddDate(1, 0, 0)

	if d := isoDate.FindString(text); d != "" {
		if parsed, err := dateutils.ParseDate(d); err == nil {
			target = parsed
		}
		text = strings.Replace(text, d, " ", 1)
	} else if m := relative.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch strings.TrimSuffix(m[2], "s") {
		case "day":
			target = dateutils.Day(today).AddDate(0, 0, n)
		case "week":
			target = dateutils.Day(today).AddDate(0, 0, 7*n)
		case "month":
			target = dateutils.Day(today).AddDate(0, 0, goal.DaysPerMonth*n)
		case "year":
			target = dateutils.Day(today).AddDate(0, 0, 12*goal.DaysPerMonth*n)
		}
		text = strings.Replace(text, m[0], " ", 1)
	}

	amount, ok := parseAmount(amountExpr.FindString(text))
	if !ok {
		return models.Goal{}, false
	}
	return models.Goal{Name: "goal", Target: amount, TargetDate: target}, true
}

// parseAmount reads 1200, 1,200, 1'200.50 or 12,50. A comma followed by one
// or two digits is a decimal separator, any other comma or apostrophe groups
// thousands.
func parseAmount(raw string) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Zero, false
	}
	raw = strings.ReplaceAll(raw, "'", "")
	if i := strings.LastIndex(raw, ","); i >= 0 && !strings.Contains(raw, ".") && len(raw)-i-1 <= 2 {
		raw = raw[:i] + "." + raw[i+1:]
	}
	raw = strings.ReplaceAll(raw, ",", "")
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}
