package categorizer

import (
	"context"
)

// Prediction is a category label with its confidence in [0,1].
type Prediction struct {
	Category   string
	Confidence float64
}

// CategorizationStrategy defines one way of labeling a description. The
// engine tries strategies in order and keeps the first that finds a label.
type CategorizationStrategy interface {
	// Categorize attempts to label description.
	//
	// Returns:
	//   - Prediction: The label and confidence (only valid if found is true)
	//   - bool: Whether this strategy produced a label
	//   - error: Any error encountered during categorization
	Categorize(ctx context.Context, description string) (Prediction, bool, error)

	// Name returns the name of this strategy for logging and debugging purposes.
	Name() string
}
