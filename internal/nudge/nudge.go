// Package nudge joins the budget, anomaly and forecast results into a
// prioritized list of suggestions.
package nudge

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/dateutils"
	"fjacquet/fin-insights/internal/forecast"
	"fjacquet/fin-insights/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Priorities, highest first.
const (
	PriorityCashflow  = 4
	PriorityDuplicate = 3
	PriorityPacing    = 2
	PriorityGrowth    = 1
)

// Template ids.
const (
	TemplateCashflowRisk    = "cashflow_risk.v1"
	TemplateDuplicateReview = "duplicate_review.v1"
	TemplateBudgetPacing    = "budget_pacing.v1"
	TemplateCategoryGrowth  = "category_growth.v1"
)

var namespace = uuid.MustParse("9b1f3c55-2f0e-4d8a-9c61-5d1c0a3e7f42")

var templates = template.Must(template.New("nudges").Parse(`
{{define "cashflow_risk.v1"}}Your balance could fall to {{.balance}} within {{.horizon}} days. Consider delaying non-essential spending.{{end}}
{{define "duplicate_review.v1"}}{{.description}} was charged {{.amount}} twice within {{.gap}} days. Check whether one charge is a duplicate.{{end}}
{{define "budget_pacing.v1"}}{{.category}} spending is {{.spent}} of a {{.limit}} budget with {{.days_left}} days left this month.{{end}}
{{define "category_growth.v1"}}{{.category}} spending grew {{.growth}}% last month, from {{.previous}} to {{.last}}.{{end}}
`))

// Thresholds control which results become nudges.
type Thresholds struct {
	// GrowthThreshold is the month-over-month growth ratio above which a
	// category growth nudge is raised.
	GrowthThreshold decimal.Decimal
	// SafetyFloor is the pessimistic balance below which a cash-flow risk
	// nudge is raised.
	SafetyFloor decimal.Decimal
}

// DefaultThresholds returns 20% growth and a zero floor.
func DefaultThresholds() Thresholds {
	return Thresholds{GrowthThreshold: decimal.RequireFromString("0.2"), SafetyFloor: decimal.Zero}
}

// Inputs are the upstream results joined by Generate. A nil Forecast or an
// empty slice means the module produced nothing.
type Inputs struct {
	Budgets   []models.Budget
	Tracking  []models.TrackingResult
	Anomalies []models.AnomalyFlag
	Forecast  *forecast.Result
	Trends    []models.CategoryTrend
	AsOf      time.Time
}

// Generate produces the nudges for in. The result is ordered by priority
// descending, then by triggering date descending, then by id.
func Generate(in Inputs, th Thresholds) []models.Nudge {
	var out []models.Nudge
	out = append(out, cashflow(in, th)...)
	out = append(out, duplicates(in)...)
	out = append(out, pacing(in)...)
	out = append(out, growth(in, th)...)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.TriggeredAt.Equal(b.TriggeredAt) {
			return a.TriggeredAt.After(b.TriggeredAt)
		}
		return a.ID < b.ID
	})
	return out
}

func cashflow(in Inputs, th Thresholds) []models.Nudge {
	if in.Forecast == nil {
		return nil
	}
	for _, p := range in.Forecast.Points {
		if !p.PessimisticBalance.LessThan(th.SafetyFloor) {
			continue
		}
		horizon := strconv.Itoa(p.HorizonDays)
		return []models.Nudge{build(models.NudgeCashflowRisk, TemplateCashflowRisk, PriorityCashflow,
			[]models.EntityRef{{Kind: models.RefHorizon, ID: horizon}},
			map[string]string{
				"balance": models.FormatMoney(p.PessimisticBalance),
				"horizon": horizon,
				"tier":    string(p.Tier),
			},
			in.Forecast.AsOf)}
	}
	return nil
}

func duplicates(in Inputs) []models.Nudge {
	var out []models.Nudge
	for _, f := range in.Anomalies {
		if f.Kind != models.AnomalyDuplicate || len(f.Related) == 0 {
			continue
		}
		refs := append([]models.EntityRef{f.Transaction}, f.Related...)
		out = append(out, build(models.NudgeDuplicateReview, TemplateDuplicateReview, PriorityDuplicate, refs,
			map[string]string{
				"description": f.Description,
				"amount":      models.FormatMoney(f.Amount),
				"category":    f.Category,
				"gap":         strconv.Itoa(f.GapDays),
			},
			f.Date))
	}
	return out
}

func pacing(in Inputs) []models.Nudge {
	flagged := make(map[string]models.AnomalyFlag)
	for _, f := range in.Anomalies {
		if f.Kind == models.AnomalyPacing {
			flagged[f.Category] = f
		}
	}

	var out []models.Nudge
	covered := make(map[string]bool)
	for _, tr := range in.Tracking {
		if tr.Status != models.StatusPacingOver && tr.Status != models.StatusOverLimit {
			continue
		}
		covered[tr.Category] = true
		refs := []models.EntityRef{{Kind: models.RefCategory, ID: tr.Category}}
		if f, ok := flagged[tr.Category]; ok {
			refs = append(refs, f.Transaction)
		}
		triggered := tr.LastActivity
		if triggered.IsZero() {
			triggered = in.AsOf
		}
		out = append(out, build(models.NudgeBudgetPacing, TemplateBudgetPacing, PriorityPacing, refs,
			map[string]string{
				"category":  tr.Category,
				"spent":     models.FormatMoney(tr.Spent),
				"limit":     models.FormatMoney(tr.Limit),
				"days_left": strconv.Itoa(tr.PeriodDays - tr.ElapsedDays),
				"status":    string(tr.Status),
			},
			triggered))
	}

	// Pacing flags for categories the tracker did not report.
	limits := make(map[string]decimal.Decimal, len(in.Budgets))
	for _, b := range in.Budgets {
		limits[b.Category] = b.Limit
	}
	cats := make([]string, 0, len(flagged))
	for cat := range flagged {
		if !covered[cat] {
			cats = append(cats, cat)
		}
	}
	sort.Strings(cats)
	for _, cat := range cats {
		f := flagged[cat]
		daysLeft := dateutils.DaysInMonth(f.Date) - f.Date.Day()
		out = append(out, build(models.NudgeBudgetPacing, TemplateBudgetPacing, PriorityPacing,
			[]models.EntityRef{{Kind: models.RefCategory, ID: cat}, f.Transaction},
			map[string]string{
				"category":  cat,
				"spent":     models.FormatMoney(f.Amount),
				"limit":     models.FormatMoney(limits[cat]),
				"days_left": strconv.Itoa(daysLeft),
				"status":    string(models.StatusPacingOver),
			},
			f.Date))
	}
	return out
}

func growth(in Inputs, th Thresholds) []models.Nudge {
	var out []models.Nudge
	for _, tr := range in.Trends {
		if !tr.Growth.GreaterThan(th.GrowthThreshold) {
			continue
		}
		out = append(out, build(models.NudgeCategoryGrowth, TemplateCategoryGrowth, PriorityGrowth,
			[]models.EntityRef{{Kind: models.RefCategory, ID: tr.Category}},
			map[string]string{
				"category": tr.Category,
				"growth":   tr.Growth.Mul(decimal.NewFromInt(100)).StringFixed(0),
				"previous": models.FormatMoney(tr.PreviousMonth),
				"last":     models.FormatMoney(tr.LastMonth),
			},
			tr.MonthStart))
	}
	return out
}

func build(kind models.NudgeKind, templateID string, priority int, refs []models.EntityRef, params map[string]string, triggered time.Time) models.Nudge {
	n := models.Nudge{
		ID:          nudgeID(kind, refs, triggered),
		Kind:        kind,
		TemplateID:  templateID,
		Priority:    priority,
		Refs:        refs,
		Params:      params,
		TriggeredAt: triggered,
	}
	n.Message = Render(n)
	return n
}

// nudgeID derives a stable id from the nudge kind, its references and the
// triggering day, so rerunning the same snapshot yields the same ids.
func nudgeID(kind models.NudgeKind, refs []models.EntityRef, triggered time.Time) string {
	var b strings.Builder
	b.WriteString(string(kind))
	for _, r := range refs {
		fmt.Fprintf(&b, "|%s:%s", r.Kind, r.ID)
	}
	b.WriteString("|" + dateutils.ToISODate(triggered))
	return uuid.NewSHA1(namespace, []byte(b.String())).String()
}

// Render formats the message of n from its template and params. Unknown
// templates render as the kind.
func Render(n models.Nudge) string {
	if templates.Lookup(n.TemplateID) == nil {
		return string(n.Kind)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, n.TemplateID, n.Params); err != nil {
		return string(n.Kind)
	}
	return buf.String()
}

// ValidateRefs checks that every transaction reference of nudges resolves
// in snapshot.
func ValidateRefs(nudges []models.Nudge, snapshot models.Snapshot) error {
	index := snapshot.Index()
	for i, n := range nudges {
		for _, ref := range n.Refs {
			if ref.Kind != models.RefTransaction {
				continue
			}
			if _, ok := index[ref.ID]; !ok {
				return &analyticserror.DataError{Record: i, Field: "refs", Value: ref.ID, Reason: "transaction is not in the snapshot"}
			}
		}
	}
	return nil
}
