package review

import (
	"time"

	"github.com/conorfennell/lexihash/internal/contexthash"
	"github.com/conorfennell/lexihash/internal/domain"
	"github.com/conorfennell/lexihash/internal/interval"
)

// Record computes the outcome of one review without touching storage.
// It returns the card with its new level and lastRepeat set to now, and the
// history entry describing the attempt. shown is the example displayed, if
// any; exerciseType is stored as nil when empty.
//
// The entry must be persisted before or together with the card. Calling
// Record again with the same arguments yields the same result.
func Record(card domain.Card, success bool, shown *domain.Example, exerciseType string, now time.Time) (domain.Card, domain.HistoryEntry, error) {
	level, err := interval.NextLevel(card.Level, success)
	if err != nil {
		return domain.Card{}, domain.HistoryEntry{}, err
	}

	updated := card.Clone()
	updated.Level = level
	updated.LastRepeat = now

	entry := domain.HistoryEntry{
		Date:        now,
		Success:     success,
		CardID:      card.ID,
		ExampleHash: contexthash.HashPtr(shown),
	}
	if exerciseType != "" {
		t := exerciseType
		entry.Type = &t
	}
	return updated, entry, nil
}
