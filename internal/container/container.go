// Package container provides dependency injection for the fin-insights application.
// It centralizes the creation and wiring of the stores, the categorization
// engine, the analytics pipeline and the insights service so that commands
// and the HTTP API share a single, explicit object graph.
package container

import (
	"errors"
	"fmt"
	"os"
	"time"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/categorizer"
	"fjacquet/fin-insights/internal/config"
	"fjacquet/fin-insights/internal/goal"
	"fjacquet/fin-insights/internal/insights"
	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/pipeline"
	"fjacquet/fin-insights/internal/store"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation - all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger   logging.Logger
	config   *config.Config
	files    *store.FileStore
	feedback *store.BoltFeedbackLog
	ledger   *store.Ledger
	engine   *categorizer.Engine
	runner   *pipeline.Runner
	insights *insights.Service

	recurring []models.RecurringExpense
	debts     []models.Debt
}

// Option customizes NewContainer.
type Option func(*options)

type options struct {
	logger logging.Logger
	now    func() time.Time
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock sets the clock used for feedback timestamps and run records.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewContainer creates and wires all application dependencies.
//
// The ledger and the feedback log are opened here and stay open until Close.
// A persisted model artifact is activated when present; a corrupt artifact is
// logged and ignored so that the keyword fallback keeps serving.
func NewContainer(cfg *config.Config, opts ...Option) (c *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	}

	if cfg.Data.Directory != "" {
		if err := os.MkdirAll(cfg.Data.Directory, models.PermissionDirectory); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	files := store.NewFileStore(
		cfg.DataPath(cfg.Data.ExamplesFile),
		cfg.DataPath(cfg.Data.KeywordRulesFile),
		cfg.DataPath(cfg.Data.RecurringFile),
		cfg.DataPath(cfg.Data.DebtsFile),
		logger,
	)

	examples, err := files.LoadTrainingExamples()
	if err != nil {
		return nil, fmt.Errorf("failed to load training examples: %w", err)
	}
	rules, err := files.LoadKeywordRules()
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword rules: %w", err)
	}
	recurring, err := files.LoadRecurring()
	if err != nil {
		return nil, fmt.Errorf("failed to load recurring expenses: %w", err)
	}
	debts, err := files.LoadDebts()
	if err != nil {
		return nil, fmt.Errorf("failed to load debts: %w", err)
	}

	feedback, err := store.OpenFeedbackLog(cfg.DataPath(cfg.Data.FeedbackDB))
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback log: %w", err)
	}
	defer func() {
		if err != nil {
			_ = feedback.Close()
		}
	}()

	cat := cfg.Categorization
	engine, err := categorizer.NewEngine(categorizer.EngineOptions{
		Examples:     examples,
		Feedback:     feedback,
		KeywordRules: rules,
		Train: categorizer.TrainOptions{
			Backend:      categorizer.Backend(cat.Backend),
			MaxFeatures:  cat.MaxFeatures,
			Epochs:       cat.Epochs,
			LearningRate: cat.LearningRate,
			L2:           cat.L2,
		},
		MinConfidence: cat.MinConfidence,
		Logger:        logger,
		Now:           o.now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create categorization engine: %w", err)
	}
	loadModel(engine, cfg.DataPath(cfg.Data.ModelFile), logger)

	ledger, err := store.OpenLedger(cfg.DataPath(cfg.Data.SnapshotDB), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	runner := pipeline.NewRunner(ledger, pipeline.SettingsFromConfig(cfg), pipeline.Options{
		Engine:    engine,
		Writer:    ledger,
		Recorder:  ledger,
		Recurring: recurring,
		Logger:    logger,
		Now:       o.now,
	})

	service := insights.NewService(runner, insights.Options{
		Engine:        engine,
		MinConfidence: cat.MinConfidence,
		Debts:         debts,
		Goal:          goal.Options{BufferRatio: cfg.Goal.BufferRatio},
		Logger:        logger,
	})

	logger.Info("Container initialized successfully",
		logging.F("recurring_count", len(recurring)),
		logging.F("debts_count", len(debts)),
		logging.F("model_loaded", engine.Model() != nil))

	return &Container{
		logger:    logger,
		config:    cfg,
		files:     files,
		feedback:  feedback,
		ledger:    ledger,
		engine:    engine,
		runner:    runner,
		insights:  service,
		recurring: recurring,
		debts:     debts,
	}, nil
}

func loadModel(engine *categorizer.Engine, path string, logger logging.Logger) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		logger.Debug("No model artifact found", logging.F(logging.FieldFile, path))
		return
	}
	m, err := categorizer.Load(path)
	var loadErr *analyticserror.ModelLoadError
	if errors.As(err, &loadErr) {
		logger.WithError(err).Warn("Ignoring unreadable model artifact", logging.F(logging.FieldFile, loadErr.Path))
		return
	}
	if err != nil {
		logger.WithError(err).Warn("Failed to load model artifact", logging.F(logging.FieldFile, path))
		return
	}
	engine.SetModel(m)
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetFileStore returns the YAML data store.
func (c *Container) GetFileStore() *store.FileStore {
	return c.files
}

// GetLedger returns the transaction ledger.
func (c *Container) GetLedger() *store.Ledger {
	return c.ledger
}

// GetEngine returns the categorization engine.
func (c *Container) GetEngine() *categorizer.Engine {
	return c.engine
}

// GetRunner returns the analytics pipeline runner.
func (c *Container) GetRunner() *pipeline.Runner {
	return c.runner
}

// GetInsights returns the question answering service.
func (c *Container) GetInsights() *insights.Service {
	return c.insights
}

// GetRecurring returns a copy of the configured recurring expenses.
func (c *Container) GetRecurring() []models.RecurringExpense {
	return append([]models.RecurringExpense(nil), c.recurring...)
}

// GetDebts returns a copy of the configured debts.
func (c *Container) GetDebts() []models.Debt {
	return append([]models.Debt(nil), c.debts...)
}

// ModelPath returns the resolved location of the model artifact.
func (c *Container) ModelPath() string {
	return c.config.DataPath(c.config.Data.ModelFile)
}

// Close releases the ledger and the feedback log.
func (c *Container) Close() error {
	var errs []error
	if c.ledger != nil {
		if err := c.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ledger: %w", err))
		}
	}
	if c.feedback != nil {
		if err := c.feedback.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close feedback log: %w", err))
		}
	}
	c.logger.Info("Container closed")
	return errors.Join(errs...)
}
