package insights

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"fjacquet/fin-insights/internal/dateutils"
	"fjacquet/fin-insights/internal/models"

	"github.com/shopspring/decimal"
)

// ErrUngrounded is returned when a rendered answer contains a number that no
// module produced.
var ErrUngrounded = errors.New("answer contains an ungrounded number")

var numberToken = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// Template text must not contain digits: every number reaches the answer
// through one of the registering funcs.
var answerTemplates = template.Must(template.New("answers").Funcs(registry{}.funcs()).Parse(`
{{define "categorize"}}{{if .Description}}"{{text .Description}}" belongs to {{label .Category}} with {{percentf .Confidence}} confidence.{{if .NeedsReview}} The confidence is low, please review it.{{end}}{{else}}Put the description to categorize in quotes.{{end}}{{end}}

{{define "budget"}}{{if .Tracking}}Budget status on {{date .AsOf}}:
{{range .Tracking}}- {{label .Category}}: spent {{money .Spent}} of {{money .Limit}} ({{percent .PercentUsed}}), {{label (print .Status)}}
{{end}}{{else}}There is not enough history to suggest budgets yet.{{end}}{{end}}

{{define "anomaly"}}{{if .Flags}}Found {{count .Total}} unusual transactions. The most severe:
{{range .Flags}}- {{date .Date}} {{label .Category}} {{money .Amount}} ({{label (print .Kind)}}): {{text .Explanation}}
{{end}}{{else}}Nothing unusual stands out in your recent transactions.{{end}}{{end}}

{{define "forecast"}}Starting from {{money .CurrentBalance}} on {{date .AsOf}} with an average daily net of {{num .AvgDailyNet}}:
{{range .Points}}- {{label .HorizonLabel}} ({{date .Date}}): {{money .ProjectedBalance}}, pessimistic {{money .PessimisticBalance}}, {{label (print .Tier)}} confidence
{{end}}{{if .Insufficient}}Only {{count .SampleDays}} days of history back this projection.{{end}}{{end}}

{{define "goal"}}{{if .Missing}}Tell me how much you want to save and by when, for example "save amount by date".{{else}}To reach {{money .Plan.Goal.Target}} by {{date .Plan.Goal.TargetDate}}, save {{money .Plan.MonthlyTarget}} per month for {{count .Plan.RemainingMonths}} months, or {{money .Plan.SafeTarget}} with a safety buffer. {{if .Plan.Feasible}}This fits within{{else}}This exceeds{{end}} your disposable income of {{money .Plan.DisposableIncome}} per month.{{if .Plan.LowConfidence}} There is little history behind this estimate.{{end}}{{end}}{{end}}

{{define "nudges"}}{{if .Nudges}}Suggestions, most urgent first:
{{range .Nudges}}- {{text .Message}}
{{end}}{{else}}No suggestions right now. Keep following your plan!{{end}}{{end}}

{{define "debt"}}{{if .Ordered}}Pay off your debts in this order: {{range $i, $l := .Ordered}}{{if $i}}, {{end}}{{label $l}}{{end}}.{{if .HasPayoff}} At the current payment it is paid off in {{count .Months}} months with {{money .Interest}} of interest.{{end}}{{else}}No debts are on file.{{end}}{{end}}

{{define "summary"}}{{if .Highlights.Transactions}}For {{month .Highlights.Month}}, income is {{money .Highlights.Income}} and spending is {{money .Highlights.Spend}}, leaving a net of {{money .Highlights.Net}}.{{if .Highlights.TopCategory}} The top category is {{label .Highlights.TopCategory}} at {{money .Highlights.TopCategorySpend}}.{{end}}{{else}}There are no transactions to summarize yet.{{end}}{{end}}

{{define "unavailable"}}The {{label (print .For)}} results are not available for this run.{{end}}
`))

// registry records the numeric tokens of every value a template prints.
type registry map[string]struct{}

func (r registry) add(s string) string {
	for _, tok := range numberToken.FindAllString(s, -1) {
		r[tok] = struct{}{}
	}
	return s
}

func (r registry) funcs() template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string { return r.add(models.FormatMoney(d)) },
		"num":   func(f float64) string { return r.add(strconv.FormatFloat(f, 'f', 2, 64)) },
		"count": func(n int) string { return r.add(strconv.Itoa(n)) },
		"percent": func(d decimal.Decimal) string {
			return r.add(d.Mul(decimal.NewFromInt(100)).StringFixed(0)) + "%"
		},
		"percentf": func(f float64) string { return r.add(strconv.FormatFloat(f*100, 'f', 0, 64)) + "%" },
		"date":     func(t time.Time) string { return r.add(dateutils.ToISODate(t)) },
		"month":    func(t time.Time) string { return r.add(t.Format("January 2006")) },
		"label":    func(s string) string { return r.add(s) },
		"text":     func(s string) string { return r.add(s) },
	}
}

// Render fills the template of res and checks that every number of the
// answer was printed from res.
func Render(res Result) (string, error) {
	name := string(res.Intent())
	if answerTemplates.Lookup(name) == nil {
		return "", fmt.Errorf("no answer template for intent %q", name)
	}
	t, err := answerTemplates.Clone()
	if err != nil {
		return "", fmt.Errorf("failed to clone answer templates: %w", err)
	}
	seen := registry{}
	t.Funcs(seen.funcs())

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, res); err != nil {
		return "", fmt.Errorf("failed to render %s answer: %w", name, err)
	}
	answer := strings.TrimSpace(buf.String())
	if err := checkGrounded(answer, seen); err != nil {
		return "", err
	}
	return answer, nil
}

func checkGrounded(answer string, seen registry) error {
	for _, tok := range numberToken.FindAllString(answer, -1) {
		if _, ok := seen[tok]; !ok {
			return fmt.Errorf("%w: %s", ErrUngrounded, tok)
		}
	}
	return nil
}
