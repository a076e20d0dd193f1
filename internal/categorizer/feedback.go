package categorizer

import (
	"sync"

	"fjacquet/fin-insights/internal/models"
)

// FeedbackLog is the append-only store of user corrections. Append assigns
// the record's sequence number; All returns records in append order.
type FeedbackLog interface {
	Append(rec models.FeedbackRecord) (models.FeedbackRecord, error)
	All() ([]models.FeedbackRecord, error)
}

// MemoryFeedbackLog is an in-process FeedbackLog.
type MemoryFeedbackLog struct {
	mu      sync.Mutex
	records []models.FeedbackRecord
}

// NewMemoryFeedbackLog returns an empty in-memory log.
func NewMemoryFeedbackLog() *MemoryFeedbackLog {
	return &MemoryFeedbackLog{}
}

func (l *MemoryFeedbackLog) Append(rec models.FeedbackRecord) (models.FeedbackRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec.Seq = uint64(len(l.records) + 1)
	l.records = append(l.records, rec)
	return rec, nil
}

func (l *MemoryFeedbackLog) All() ([]models.FeedbackRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.FeedbackRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}

// latestByKey replays records in order; later records win.
func latestByKey(records []models.FeedbackRecord) map[string]models.FeedbackRecord {
	latest := make(map[string]models.FeedbackRecord, len(records))
	for _, rec := range records {
		if rec.Key == "" {
			continue
		}
		latest[rec.Key] = rec
	}
	return latest
}

// EffectiveExamples merges the base examples with feedback overrides: base
// examples whose key was corrected take the corrected category, and
// corrections for descriptions absent from the base set are appended in the
// order they were first recorded.
func EffectiveExamples(base []models.TrainingExample, records []models.FeedbackRecord) []models.TrainingExample {
	latest := latestByKey(records)
	out := make([]models.TrainingExample, 0, len(base)+len(latest))
	covered := make(map[string]struct{}, len(base))

	for _, ex := range base {
		key := FeedbackKey(ex.Description)
		if rec, ok := latest[key]; ok {
			ex.Category = rec.Category
			covered[key] = struct{}{}
		}
		out = append(out, ex)
	}

	for _, rec := range records {
		if _, done := covered[rec.Key]; done || rec.Key == "" {
			continue
		}
		covered[rec.Key] = struct{}{}
		desc := rec.Description
		if desc == "" {
			desc = rec.Key
		}
		out = append(out, models.TrainingExample{Description: desc, Category: latest[rec.Key].Category})
	}
	return out
}
