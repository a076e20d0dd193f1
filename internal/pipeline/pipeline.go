// Package pipeline runs one analytics pass over a ledger snapshot: the
// uncategorized rows are labeled, then budget, anomaly and forecast run in
// parallel under the run deadline and the nudge generator joins them.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fjacquet/fin-insights/internal/anomaly"
	"fjacquet/fin-insights/internal/budget"
	"fjacquet/fin-insights/internal/categorizer"
	"fjacquet/fin-insights/internal/config"
	"fjacquet/fin-insights/internal/dateutils"
	"fjacquet/fin-insights/internal/forecast"
	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/nudge"
	"fjacquet/fin-insights/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Module names reported in Report.Degraded.
const (
	ModuleBudget   = "budget"
	ModuleAnomaly  = "anomaly"
	ModuleForecast = "forecast"
)

// SnapshotSource provides the transactions of a run.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
}

// CategoryWriter persists labels assigned during a run.
type CategoryWriter interface {
	UpdateCategories(ctx context.Context, txns []models.Transaction) (int, error)
}

// RunRecorder stores the audit row of a run.
type RunRecorder interface {
	RecordRun(ctx context.Context, run store.RunRecord) error
}

// Settings are the thresholds of every module of a run.
type Settings struct {
	SavingsRate    float64
	TrailingMonths int
	Track          budget.TrackOptions
	Anomaly        anomaly.Config
	Forecast       forecast.Options
	Horizons       []int
	OpeningBalance decimal.Decimal
	Thresholds     nudge.Thresholds
	MaxHistory     int
	RunTimeout     time.Duration
	// AsOf is the analysis day. Zero means the date of the latest transaction.
	AsOf time.Time
}

// DefaultSettings returns the module defaults with a 30 second deadline.
func DefaultSettings() Settings {
	return Settings{
		SavingsRate:    0.1,
		TrailingMonths: 3,
		Track:          budget.DefaultTrackOptions(),
		Anomaly:        anomaly.DefaultConfig(),
		Forecast:       forecast.DefaultOptions(),
		Horizons:       forecast.DefaultHorizons,
		Thresholds:     nudge.DefaultThresholds(),
		MaxHistory:     100000,
		RunTimeout:     30 * time.Second,
	}
}

// SettingsFromConfig maps the configuration keys onto Settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	s.SavingsRate = cfg.Budget.SavingsRate
	s.TrailingMonths = cfg.Budget.TrailingMonths
	s.Track = budget.TrackOptions{Margin: cfg.Budget.OverspendMargin, WatchRatio: cfg.Budget.WatchRatio}

	s.Anomaly.SpikeWindow = cfg.Anomaly.SpikeWindow
	s.Anomaly.SpikeMinSamples = cfg.Anomaly.SpikeMinSamples
	s.Anomaly.SpikeZThreshold = cfg.Anomaly.SpikeZThreshold
	s.Anomaly.DuplicateWindowDays = cfg.Anomaly.DuplicateWindowDays
	s.Anomaly.PacingMargin = cfg.Anomaly.PacingMargin

	s.Forecast = forecast.Options{TrailingDays: cfg.Forecast.TrailingDays, MinHistoryDays: cfg.Forecast.MinHistoryDays}
	s.Horizons = cfg.Forecast.Horizons
	s.OpeningBalance = decimal.NewFromFloat(cfg.Forecast.OpeningBalance)

	s.Thresholds = nudge.Thresholds{
		GrowthThreshold: decimal.NewFromFloat(cfg.Nudge.GrowthThreshold),
		SafetyFloor:     decimal.NewFromFloat(cfg.Nudge.SafetyFloor),
	}
	s.MaxHistory = cfg.Limits.MaxHistory
	s.RunTimeout = time.Duration(cfg.Limits.RunTimeoutSeconds) * time.Second
	return s
}

// Report is the outcome of a run. Outputs of degraded modules are empty.
type Report struct {
	RunID        string                  `json:"run_id" yaml:"run_id"`
	StartedAt    time.Time               `json:"started_at" yaml:"started_at"`
	AsOf         time.Time               `json:"as_of" yaml:"as_of"`
	Transactions int                     `json:"transactions" yaml:"transactions"`
	Truncated    bool                    `json:"truncated" yaml:"truncated"`
	ModelVersion string                  `json:"model_version,omitempty" yaml:"model_version,omitempty"`
	Labeled      int                     `json:"labeled" yaml:"labeled"`
	NeedsReview  int                     `json:"needs_review" yaml:"needs_review"`
	Rejected     int                     `json:"rejected" yaml:"rejected"`
	Highlights   models.Highlights       `json:"highlights" yaml:"highlights"`
	Budgets      []models.Budget         `json:"budgets" yaml:"budgets"`
	Tracking     []models.TrackingResult `json:"tracking" yaml:"tracking"`
	Trends       []models.CategoryTrend  `json:"trends" yaml:"trends"`
	Anomalies    []models.AnomalyFlag    `json:"anomalies" yaml:"anomalies"`
	Forecast     *forecast.Result        `json:"forecast,omitempty" yaml:"forecast,omitempty"`
	Nudges       []models.Nudge          `json:"nudges" yaml:"nudges"`
	Degraded     []string                `json:"degraded,omitempty" yaml:"degraded,omitempty"`

	// Snapshot is the analysed, labeled snapshot.
	Snapshot models.Snapshot `json:"-" yaml:"-"`
}

// IsDegraded reports whether module missed the run deadline.
func (r Report) IsDegraded(module string) bool {
	for _, m := range r.Degraded {
		if m == module {
			return true
		}
	}
	return false
}

// Options wires the optional collaborators of a Runner.
type Options struct {
	Engine    *categorizer.Engine
	Writer    CategoryWriter
	Recorder  RunRecorder
	Recurring []models.RecurringExpense
	Logger    logging.Logger
	Now       func() time.Time
}

// Runner executes analytics runs.
type Runner struct {
	source    SnapshotSource
	settings  Settings
	engine    *categorizer.Engine
	writer    CategoryWriter
	recorder  RunRecorder
	recurring []models.RecurringExpense
	logger    logging.Logger
	now       func() time.Time

	// hook runs at the start of every module; tests use it to stall one.
	hook func(module string)
}

// NewRunner creates a Runner over source.
func NewRunner(source SnapshotSource, settings Settings, opts Options) *Runner {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		source:    source,
		settings:  settings,
		engine:    opts.Engine,
		writer:    opts.Writer,
		recorder:  opts.Recorder,
		recurring: opts.Recurring,
		logger:    logging.OrNop(opts.Logger),
		now:       now,
	}
}

// Settings returns the thresholds of the runner.
func (r *Runner) Settings() Settings {
	return r.settings
}

// Recurring returns the known recurring expenses.
func (r *Runner) Recurring() []models.RecurringExpense {
	return r.recurring
}

// Run takes a snapshot and analyses it. Module errors such as invalid
// thresholds fail the run; a module that misses the deadline only degrades
// the report.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString(), StartedAt: r.now()}
	logger := r.logger.WithField(logging.FieldRunID, report.RunID)

	snap, err := r.source.Snapshot(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to take snapshot: %w", err)
	}
	txns := snap.Transactions
	if r.settings.MaxHistory > 0 && len(txns) > r.settings.MaxHistory {
		txns = txns[len(txns)-r.settings.MaxHistory:]
		report.Truncated = true
		logger.Warn("History truncated", logging.F(logging.FieldCount, len(txns)))
	}

	if r.engine != nil {
		txns, err = r.label(ctx, txns, &report, logger)
		if err != nil {
			return Report{}, err
		}
	}
	report.Transactions = len(txns)
	report.Snapshot = models.Snapshot{Transactions: txns, TakenAt: snap.TakenAt}

	asOf := r.settings.AsOf
	if asOf.IsZero() && len(txns) > 0 {
		asOf = latest(txns)
	}
	report.AsOf = dateutils.Day(asOf)

	if err := r.analyse(ctx, txns, &report, logger); err != nil {
		return Report{}, err
	}

	report.Highlights = budget.Summarize(txns, report.AsOf)
	report.Nudges = nudge.Generate(nudge.Inputs{
		Budgets:   report.Budgets,
		Tracking:  report.Tracking,
		Anomalies: report.Anomalies,
		Forecast:  report.Forecast,
		Trends:    report.Trends,
		AsOf:      report.AsOf,
	}, r.settings.Thresholds)
	if err := nudge.ValidateRefs(report.Nudges, report.Snapshot); err != nil {
		return Report{}, fmt.Errorf("nudge references: %w", err)
	}

	if r.recorder != nil {
		rec := store.RunRecord{
			ID:           report.RunID,
			StartedAt:    report.StartedAt,
			ModelVersion: report.ModelVersion,
			Transactions: report.Transactions,
			Degraded:     report.Degraded,
		}
		if err := r.recorder.RecordRun(ctx, rec); err != nil {
			logger.WithError(err).Warn("Failed to record run")
		}
	}

	logger.Info("Run completed",
		logging.F(logging.FieldCount, report.Transactions),
		logging.F("nudges", len(report.Nudges)),
		logging.F("degraded", len(report.Degraded)))
	return report, nil
}

func (r *Runner) label(ctx context.Context, txns []models.Transaction, report *Report, logger logging.Logger) ([]models.Transaction, error) {
	batch, err := r.engine.CategorizeBatch(ctx, txns, categorizer.BatchOptions{OnlyUncategorized: true})
	if err != nil {
		return nil, fmt.Errorf("failed to categorize snapshot: %w", err)
	}
	report.ModelVersion = batch.ModelVersion
	report.Labeled = batch.Labeled
	report.NeedsReview = batch.NeedsReview
	report.Rejected = len(batch.Rejected)

	if r.writer != nil && batch.Labeled > 0 {
		n, err := r.writer.UpdateCategories(ctx, batch.Transactions)
		if err != nil {
			return nil, fmt.Errorf("failed to store categories: %w", err)
		}
		logger.Debug("Stored categories", logging.F(logging.FieldCount, n))
	}
	return batch.Transactions, nil
}

type budgetOutput struct {
	budgets  []models.Budget
	tracking []models.TrackingResult
	trends   []models.CategoryTrend
}

func (r *Runner) analyse(ctx context.Context, txns []models.Transaction, report *Report, logger logging.Logger) error {
	runCtx := ctx
	if r.settings.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.settings.RunTimeout)
		defer cancel()
	}

	var (
		mu       sync.Mutex
		degraded []string
	)
	markDegraded := func(module string) {
		mu.Lock()
		degraded = append(degraded, module)
		mu.Unlock()
		logger.Warn("Module missed the run deadline", logging.F(logging.FieldModule, module))
	}

	var (
		budgets    budgetOutput
		flags      anomaly.Result
		projection *forecast.Result
	)
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		out, ok, err := stage(gctx, r.hook, ModuleBudget, markDegraded, func() (budgetOutput, error) {
			return r.budget(txns, report.AsOf)
		})
		if ok {
			budgets = out
		}
		return err
	})
	g.Go(func() error {
		out, ok, err := stage(gctx, r.hook, ModuleAnomaly, markDegraded, func() (anomaly.Result, error) {
			cfg := r.settings.Anomaly
			cfg.SavingsRate = r.settings.SavingsRate
			cfg.TrailingMonths = r.settings.TrailingMonths
			cfg.AsOf = report.AsOf
			return anomaly.Detect(txns, cfg)
		})
		if ok {
			flags = out
		}
		return err
	})
	g.Go(func() error {
		out, ok, err := stage(gctx, r.hook, ModuleForecast, markDegraded, func() (*forecast.Result, error) {
			return r.project(txns, report.AsOf)
		})
		if ok {
			projection = out
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	report.Budgets = budgets.budgets
	report.Tracking = budgets.tracking
	report.Trends = budgets.trends
	report.Anomalies = flags.Flags
	report.Forecast = projection
	sort.Strings(degraded)
	report.Degraded = degraded
	return nil
}

func (r *Runner) budget(txns []models.Transaction, asOf time.Time) (budgetOutput, error) {
	budgets, err := budget.Suggest(txns, r.settings.SavingsRate, budget.Options{TrailingMonths: r.settings.TrailingMonths, AsOf: asOf})
	if err != nil {
		return budgetOutput{}, err
	}
	return budgetOutput{
		budgets:  budgets,
		tracking: budget.Track(txns, budgets, asOf, r.settings.Track),
		trends:   budget.Trends(txns, asOf),
	}, nil
}

func (r *Runner) project(txns []models.Transaction, asOf time.Time) (*forecast.Result, error) {
	if asOf.IsZero() {
		return nil, nil
	}
	recurring := forecast.MarkObserved(r.recurring, txns, asOf, r.settings.Forecast.TrailingDays)
	res, err := forecast.Project(forecast.Request{
		Series:         forecast.DailyNetFlow(txns),
		Recurring:      recurring,
		Horizons:       r.settings.Horizons,
		CurrentBalance: forecast.Balance(txns, r.settings.OpeningBalance),
		AsOf:           asOf,
	}, r.settings.Forecast)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// stage runs fn and waits for it or for ctx. When ctx ends first the module
// is marked degraded and its output is dropped.
func stage[T any](ctx context.Context, hook func(string), module string, degrade func(string), fn func() (T, error)) (T, bool, error) {
	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		if hook != nil {
			hook(module)
		}
		v, err := fn()
		done <- outcome{value: v, err: err}
	}()

	var zero T
	select {
	case out := <-done:
		if out.err != nil {
			return zero, false, fmt.Errorf("%s: %w", module, out.err)
		}
		return out.value, true, nil
	case <-ctx.Done():
		degrade(module)
		return zero, false, nil
	}
}

func latest(txns []models.Transaction) time.Time {
	var last time.Time
	for _, tx := range txns {
		if tx.Date.After(last) {
			last = tx.Date
		}
	}
	return last
}
