package due

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/lexihash/internal/domain"
)

// horizonDays caps how far ahead a review is scheduled, roughly five
// million years.
const horizonDays = math.MaxInt32

// NextReview returns the instant a card becomes due: level calendar days
// after its last review.
func NextReview(card domain.Card) time.Time {
	return card.LastRepeat.AddDate(0, 0, min(card.Level, horizonDays))
}

// IsDue reports whether the card's next review is at or before now.
func IsDue(card domain.Card, now time.Time) (bool, error) {
	if card.Level < 0 {
		return false, fmt.Errorf("card %d: %w: %d", card.ID, domain.ErrInvalidLevel, card.Level)
	}
	return !NextReview(card).After(now), nil
}

// Cards returns the cards due at now, in input order.
func Cards(cards []domain.Card, now time.Time) ([]domain.Card, error) {
	dueCards := make([]domain.Card, 0, len(cards))
	for _, card := range cards {
		ok, err := IsDue(card, now)
		if err != nil {
			return nil, err
		}
		if ok {
			dueCards = append(dueCards, card)
		}
	}
	return dueCards, nil
}

// Forecast counts how many cards fall due on each of the next days calendar
// days starting with from's day. Cards already overdue count towards day 0.
// Days are bounded in from's location.
func Forecast(cards []domain.Card, from time.Time, days int) ([]int, error) {
	if days <= 0 {
		return nil, nil
	}
	counts := make([]int, days)
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for _, card := range cards {
		if card.Level < 0 {
			return nil, fmt.Errorf("card %d: %w: %d", card.ID, domain.ErrInvalidLevel, card.Level)
		}
		next := NextReview(card).In(from.Location())
		if next.Before(start) {
			counts[0]++
			continue
		}
		if day := dayIndex(start, next, days); day < days {
			counts[day]++
		}
	}
	return counts, nil
}

// dayIndex counts calendar days between start (a midnight) and t, stopping
// at limit.
func dayIndex(start, t time.Time, limit int) int {
	tDay := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, start.Location())
	n := 0
	for d := start; d.Before(tDay) && n < limit; d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}
