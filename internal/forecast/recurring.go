package forecast

import (
	"strings"
	"time"

	"fjacquet/fin-insights/internal/categorizer"
	"fjacquet/fin-insights/internal/dateutils"
	"fjacquet/fin-insights/internal/models"
)

// MarkObserved returns a copy of recurring where LastObserved is set to the
// date of the latest expense in (asOf-windowDays, asOf] whose normalized
// description contains the item's Match, or its Name when Match is empty.
// Items already carrying a later LastObserved keep it.
func MarkObserved(recurring []models.RecurringExpense, history []models.Transaction, asOf time.Time, windowDays int) []models.RecurringExpense {
	out := make([]models.RecurringExpense, len(recurring))
	copy(out, recurring)

	asOf = dateutils.Day(asOf)
	windowStart := asOf.AddDate(0, 0, -(windowDays - 1))

	for i, r := range out {
		needle := r.Match
		if needle == "" {
			needle = r.Name
		}
		needle = categorizer.FeedbackKey(needle)
		if needle == "" {
			continue
		}
		for _, tx := range history {
			d := dateutils.Day(tx.Date)
			if !tx.IsExpense() || d.Before(windowStart) || d.After(asOf) {
				continue
			}
			if !strings.Contains(categorizer.FeedbackKey(tx.Description), needle) {
				continue
			}
			if d.After(out[i].LastObserved) {
				out[i].LastObserved = d
			}
		}
	}
	return out
}
