package categorizer

import "fjacquet/fin-insights/internal/models"

// RulesStore loads the configurable inputs of the categorization engine.
type RulesStore interface {
	LoadTrainingExamples() ([]models.TrainingExample, error)
	LoadKeywordRules() ([]models.KeywordRule, error)
}
