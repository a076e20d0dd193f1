package categorizer

import (
	"context"
	"sync"

	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"
)

// FeedbackStrategy labels descriptions whose normalized key has been
// corrected by the user. A match always carries models.ConfidenceFeedback.
type FeedbackStrategy struct {
	mu        sync.RWMutex
	overrides map[string]models.FeedbackRecord
	logger    logging.Logger
}

// NewFeedbackStrategy builds the override index by replaying records.
func NewFeedbackStrategy(records []models.FeedbackRecord, logger logging.Logger) *FeedbackStrategy {
	return &FeedbackStrategy{
		overrides: latestByKey(records),
		logger:    logging.OrNop(logger),
	}
}

// Name returns the name of this strategy for logging and debugging.
func (s *FeedbackStrategy) Name() string {
	return "Feedback"
}

func (s *FeedbackStrategy) Categorize(ctx context.Context, description string) (Prediction, bool, error) {
	key := FeedbackKey(description)
	if key == "" {
		return Prediction{}, false, nil
	}

	s.mu.RLock()
	rec, ok := s.overrides[key]
	s.mu.RUnlock()
	if !ok {
		return Prediction{}, false, nil
	}

	s.logger.Debug("Description categorized using feedback override",
		logging.F(logging.FieldStrategy, s.Name()),
		logging.F(logging.FieldCategory, rec.Category))
	return Prediction{Category: rec.Category, Confidence: models.ConfidenceFeedback}, true, nil
}

// Record applies a new correction. Records older than the one already held
// for the key are ignored.
func (s *FeedbackStrategy) Record(rec models.FeedbackRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.overrides[rec.Key]; ok && cur.Seq > rec.Seq {
		return
	}
	s.overrides[rec.Key] = rec
}

// Len returns the number of distinct corrected keys.
func (s *FeedbackStrategy) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overrides)
}

// ModelStrategy labels descriptions with a trained Model. It is bound to one
// model for its whole lifetime.
type ModelStrategy struct {
	model *Model
}

// NewModelStrategy binds a strategy to m.
func NewModelStrategy(m *Model) *ModelStrategy {
	return &ModelStrategy{model: m}
}

// Name returns the name of this strategy for logging and debugging.
func (s *ModelStrategy) Name() string {
	return "Model"
}

func (s *ModelStrategy) Categorize(ctx context.Context, description string) (Prediction, bool, error) {
	if s.model == nil {
		return Prediction{}, false, nil
	}
	category, confidence := s.model.Predict(description)
	return Prediction{Category: category, Confidence: confidence}, true, nil
}
