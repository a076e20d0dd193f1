// Package categorizer assigns categories to transaction descriptions.
//
// Labels come from a chain of strategies tried in order:
//  1. Feedback: exact match on the normalized description of a user correction
//  2. Model: a trained linear classifier over unigram and bigram TF-IDF features
//  3. Keyword: a small substring table, consulted only when no model is loaded
//
// The active Model is swapped atomically on retrain; a single call or batch
// always scores against one complete model.
package categorizer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fjacquet/fin-insights/internal/analyticserror"
	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"
	"fjacquet/fin-insights/internal/validation"
)

// EngineOptions configures NewEngine.
type EngineOptions struct {
	// Examples is the base training set. Empty means BuiltinExamples.
	Examples []models.TrainingExample
	// Feedback is the correction log. Nil means an in-memory log.
	Feedback FeedbackLog
	// KeywordRules replaces DefaultKeywordRules when non-empty.
	KeywordRules []models.KeywordRule
	Train        TrainOptions
	// MinConfidence marks predictions below it as needing review.
	MinConfidence float64
	Logger        logging.Logger
	// Now is the clock used to timestamp feedback. Nil means time.Now.
	Now func() time.Time
}

// Engine is the categorization engine.
type Engine struct {
	model    atomic.Pointer[Model]
	feedback FeedbackLog
	override *FeedbackStrategy
	keywords *KeywordStrategy

	base          []models.TrainingExample
	train         TrainOptions
	minConfidence float64
	logger        logging.Logger
	now           func() time.Time

	retrainMu sync.Mutex
}

// NewEngine creates an engine without a model. Call Retrain or SetModel to
// activate one; until then descriptions are labeled by keyword fallback.
func NewEngine(opts EngineOptions) (*Engine, error) {
	logger := logging.OrNop(opts.Logger)

	feedback := opts.Feedback
	if feedback == nil {
		feedback = NewMemoryFeedbackLog()
	}
	records, err := feedback.All()
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback log: %w", err)
	}

	base := opts.Examples
	if len(base) == 0 {
		base = BuiltinExamples()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		feedback:      feedback,
		override:      NewFeedbackStrategy(records, logger),
		keywords:      NewKeywordStrategy(opts.KeywordRules, logger),
		base:          base,
		train:         opts.Train.withDefaults(),
		minConfidence: opts.MinConfidence,
		logger:        logger,
		now:           now,
	}
	logger.Debug("Categorization engine created",
		logging.F(logging.FieldCount, len(base)),
		logging.F("feedback_records", len(records)))
	return e, nil
}

// Model returns the active model, or nil.
func (e *Engine) Model() *Model {
	return e.model.Load()
}

// SetModel activates m.
func (e *Engine) SetModel(m *Model) {
	e.model.Store(m)
	if m != nil {
		e.logger.Info("Model activated",
			logging.F(logging.FieldModelVersion, m.Version),
			logging.F(logging.FieldBackend, string(m.Backend)),
			logging.F("labels", len(m.Labels)))
	}
}

// CategoryOf labels a single description against the active model.
func (e *Engine) CategoryOf(description string) (string, float64) {
	p := e.classify(context.Background(), e.chain(e.model.Load()), description)
	return p.Category, p.Confidence
}

// Explain returns every strategy attempt for description.
func (e *Engine) Explain(ctx context.Context, description string) StrategyResults {
	return e.run(ctx, e.chain(e.model.Load()), description)
}

func (e *Engine) chain(m *Model) []CategorizationStrategy {
	strategies := []CategorizationStrategy{e.override}
	if m != nil {
		strategies = append(strategies, NewModelStrategy(m))
	} else {
		strategies = append(strategies, e.keywords)
	}
	return strategies
}

func (e *Engine) run(ctx context.Context, chain []CategorizationStrategy, description string) StrategyResults {
	var results StrategyResults
	for _, s := range chain {
		p, found, err := s.Categorize(ctx, description)
		results.Results = append(results.Results, StrategyResult{Strategy: s.Name(), Prediction: p, Found: found, Error: err})
		if found && err == nil {
			break
		}
	}
	return results
}

func (e *Engine) classify(ctx context.Context, chain []CategorizationStrategy, description string) Prediction {
	results := e.run(ctx, chain, description)
	if best, found := results.GetBestResult(); found {
		return best.Prediction
	}
	for _, err := range results.GetErrors() {
		e.logger.WithError(err).Warn("Categorization strategy failed")
	}
	return Prediction{Category: models.CategoryUncategorized, Confidence: models.ConfidenceUncategorized}
}

// RecordFeedback appends a correction. From now on the description, compared
// after normalization, is labeled category with confidence 1.0.
func (e *Engine) RecordFeedback(description, category string) error {
	key := FeedbackKey(description)
	if key == "" {
		return &analyticserror.DataError{Record: -1, Field: "description", Value: description, Reason: "no usable text"}
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return &analyticserror.DataError{Record: -1, Field: "category", Reason: "required"}
	}

	rec, err := e.feedback.Append(models.FeedbackRecord{
		Key:         key,
		Description: strings.TrimSpace(description),
		Category:    category,
		Timestamp:   e.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to append feedback: %w", err)
	}
	e.override.Record(rec)

	e.logger.Info("Feedback recorded",
		logging.F(logging.FieldCategory, category),
		logging.F("key", key))
	return nil
}

// Retrain builds a model from the base examples with every feedback override
// applied and activates it. Scoring continues against the previous model
// until the new one is complete.
func (e *Engine) Retrain(ctx context.Context) (*Model, error) {
	e.retrainMu.Lock()
	defer e.retrainMu.Unlock()

	records, err := e.feedback.All()
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback log: %w", err)
	}
	examples := EffectiveExamples(e.base, records)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	m, err := Train(examples, e.train)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.SetModel(m)
	e.logger.Info("Model retrained",
		logging.F(logging.FieldModelVersion, m.Version),
		logging.F(logging.FieldCount, m.ExampleCount),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	return m, nil
}

// BatchOptions controls CategorizeBatch.
type BatchOptions struct {
	// Strict aborts the batch on the first malformed record.
	Strict bool
	// OnlyUncategorized leaves already labeled transactions untouched.
	OnlyUncategorized bool
}

// BatchResult is the outcome of CategorizeBatch.
type BatchResult struct {
	Transactions []models.Transaction
	Rejected     []error
	Labeled      int
	NeedsReview  int
	ModelVersion string
}

// CategorizeBatch labels txns against one model snapshot. Malformed records
// are skipped and reported in Rejected unless opts.Strict is set, in which
// case the first DataError is returned.
func (e *Engine) CategorizeBatch(ctx context.Context, txns []models.Transaction, opts BatchOptions) (BatchResult, error) {
	m := e.model.Load()
	chain := e.chain(m)

	result := BatchResult{Transactions: make([]models.Transaction, 0, len(txns))}
	if m != nil {
		result.ModelVersion = m.Version
	}

	for i, tx := range txns {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := validation.Transaction(i, tx); err != nil {
			if opts.Strict {
				return BatchResult{}, err
			}
			e.logger.WithError(err).Warn("Skipping malformed transaction",
				logging.F(logging.FieldTransactionID, tx.ID))
			result.Rejected = append(result.Rejected, err)
			continue
		}
		if opts.OnlyUncategorized && tx.IsCategorized() {
			result.Transactions = append(result.Transactions, tx)
			continue
		}

		p := e.classify(ctx, chain, tx.Description)
		labeled := tx.WithCategory(p.Category, p.Confidence)
		labeled.NeedsReview = p.Confidence < e.minConfidence
		if labeled.NeedsReview {
			result.NeedsReview++
		}
		result.Labeled++
		result.Transactions = append(result.Transactions, labeled)
	}

	e.logger.Info("Batch categorized",
		logging.F(logging.FieldCount, result.Labeled),
		logging.F("rejected", len(result.Rejected)),
		logging.F("needs_review", result.NeedsReview))
	return result, nil
}
