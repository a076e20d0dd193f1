package categorizer

import (
	"context"
	"strings"
	"sync"

	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"
)

// DefaultKeywordRules is the fallback table used when no model is loaded.
// Rules are tried in order and match on a substring of the normalized
// description.
func DefaultKeywordRules() []models.KeywordRule {
	return []models.KeywordRule{
		{Category: models.CategoryGroceries, Keywords: []string{"grocery"}},
		{Category: models.CategoryTransport, Keywords: []string{"uber", "lyft"}},
		{Category: models.CategoryRent, Keywords: []string{"rent", "mortgage"}},
		{Category: models.CategoryDining, Keywords: []string{"coffee", "restaurant"}},
		{Category: models.CategorySubscriptions, Keywords: []string{"netflix"}},
	}
}

// KeywordStrategy labels descriptions by keyword substring matching. Every
// match carries models.ConfidenceKeyword.
type KeywordStrategy struct {
	mu     sync.RWMutex
	rules  []models.KeywordRule
	logger logging.Logger
}

// NewKeywordStrategy creates a KeywordStrategy. A nil or empty rule set uses
// DefaultKeywordRules.
func NewKeywordStrategy(rules []models.KeywordRule, logger logging.Logger) *KeywordStrategy {
	s := &KeywordStrategy{logger: logging.OrNop(logger)}
	s.SetRules(rules)
	return s
}

// Name returns the name of this strategy for logging and debugging.
func (s *KeywordStrategy) Name() string {
	return "Keyword"
}

// SetRules replaces the rule table.
func (s *KeywordStrategy) SetRules(rules []models.KeywordRule) {
	if len(rules) == 0 {
		rules = DefaultKeywordRules()
	}
	normalized := make([]models.KeywordRule, 0, len(rules))
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if n := normalizeText(kw); n != "" {
				kws = append(kws, n)
			}
		}
		if r.Category != "" && len(kws) > 0 {
			normalized = append(normalized, models.KeywordRule{Category: r.Category, Keywords: kws})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = normalized
}

// Categorize returns the category of the first rule with a keyword starting a
// word of the normalized description: "rent" matches "rent" and "rental" but
// not "current".
func (s *KeywordStrategy) Categorize(ctx context.Context, description string) (Prediction, bool, error) {
	text := normalizeText(description)
	if text == "" {
		return Prediction{}, false, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rule := range s.rules {
		for _, kw := range rule.Keywords {
			if hasWordPrefix(text, kw) {
				s.logger.Debug("Description categorized using keyword matching",
					logging.F(logging.FieldStrategy, s.Name()),
					logging.F("keyword", kw),
					logging.F(logging.FieldCategory, rule.Category))
				return Prediction{Category: rule.Category, Confidence: models.ConfidenceKeyword}, true, nil
			}
		}
	}
	return Prediction{}, false, nil
}

// hasWordPrefix reports whether kw occurs in text at the start of a word.
// Both are normalized, so words are separated by single spaces.
func hasWordPrefix(text, kw string) bool {
	for from := 0; from <= len(text)-len(kw); {
		i := strings.Index(text[from:], kw)
		if i < 0 {
			return false
		}
		i += from
		if i == 0 || text[i-1] == ' ' {
			return true
		}
		from = i + 1
	}
	return false
}
