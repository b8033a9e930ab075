package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/conorfennell/lexihash/internal/contexthash"
	"github.com/conorfennell/lexihash/internal/domain"
	"github.com/conorfennell/lexihash/internal/due"
	"github.com/conorfennell/lexihash/internal/rotation"
)

// ErrUnknownExample is returned when a submission names an example hash the
// card does not have.
var ErrUnknownExample = errors.New("example does not belong to card")

// Store is the persistence the review service needs.
type Store interface {
	ListCards(ctx context.Context) ([]domain.Card, error)
	GetCard(ctx context.Context, id int64) (domain.Card, error)
	History(ctx context.Context, cardID int64) ([]domain.HistoryEntry, error)
	// CommitReview stores entry and the card's new level and lastRepeat in a
	// single transaction, inserting the entry first.
	CommitReview(ctx context.Context, card domain.Card, entry domain.HistoryEntry) (domain.HistoryEntry, error)
}

// Submission is a user's answer to one card.
type Submission struct {
	Success     bool
	ExampleHash string
	Type        string
}

// Service runs review sessions against a Store. Reviews of the same card are
// serialized; different cards proceed in parallel.
type Service struct {
	store  Store
	engine *rotation.Engine
	locks  *cardLocks
	logger *slog.Logger
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(store Store, engine *rotation.Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		engine: engine,
		locks:  newCardLocks(),
		logger: logger.With(slog.String("component", "review")),
	}
}

// Due returns every card due at now, in storage order.
func (s *Service) Due(ctx context.Context, now time.Time) ([]domain.Card, error) {
	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	dueCards, err := due.Cards(cards, now)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("selected due cards", "total", len(cards), "due", len(dueCards))
	return dueCards, nil
}

// NextExample returns the example to show for the card, or nil when it has
// none left that are usable.
func (s *Service) NextExample(ctx context.Context, cardID int64) (*domain.Example, error) {
	unlock := s.locks.lock(cardID)
	defer unlock()

	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get card %d: %w", cardID, err)
	}
	history, err := s.store.History(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history for card %d: %w", cardID, err)
	}
	return s.engine.Next(card, history), nil
}

// Submit records the outcome of a review and persists the updated card
// together with a new history entry.
func (s *Service) Submit(ctx context.Context, cardID int64, sub Submission, now time.Time) (domain.Card, domain.HistoryEntry, error) {
	unlock := s.locks.lock(cardID)
	defer unlock()

	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return domain.Card{}, domain.HistoryEntry{}, fmt.Errorf("failed to get card %d: %w", cardID, err)
	}

	var shown *domain.Example
	if sub.ExampleHash != "" {
		idx := slices.IndexFunc(card.Context, func(ex domain.Example) bool {
			return contexthash.Hash(ex) == sub.ExampleHash
		})
		if idx < 0 {
			return domain.Card{}, domain.HistoryEntry{}, fmt.Errorf("card %d, example %s: %w", cardID, sub.ExampleHash, ErrUnknownExample)
		}
		shown = &card.Context[idx]
	}

	updated, entry, err := Record(card, sub.Success, shown, sub.Type, now)
	if err != nil {
		return domain.Card{}, domain.HistoryEntry{}, err
	}

	stored, err := s.store.CommitReview(ctx, updated, entry)
	if err != nil {
		s.logger.Error("failed to commit review", "card_id", cardID, "error", err)
		return domain.Card{}, domain.HistoryEntry{}, fmt.Errorf("failed to commit review for card %d: %w", cardID, err)
	}

	s.logger.Info("review recorded",
		"card_id", cardID,
		"success", sub.Success,
		"level_from", card.Level,
		"level_to", updated.Level,
	)
	return updated, stored, nil
}

// Stats summarizes a card's review history.
type Stats struct {
	Attempts   int        `json:"attempts"`
	Successes  int        `json:"successes"`
	Streak     int        `json:"streak"`
	LastReview *time.Time `json:"lastReview"`
}

// Summarize computes Stats from history in any order. Streak counts the
// successes since the most recent failure.
func Summarize(history []domain.HistoryEntry) Stats {
	entries := slices.Clone(history)
	slices.SortStableFunc(entries, func(a, b domain.HistoryEntry) int {
		return a.Date.Compare(b.Date)
	})

	var st Stats
	for _, h := range entries {
		st.Attempts++
		if h.Success {
			st.Successes++
			st.Streak++
		} else {
			st.Streak = 0
		}
	}
	if n := len(entries); n > 0 {
		last := entries[n-1].Date
		st.LastReview = &last
	}
	return st
}
