// Package rotation picks which example sentence to show for a card so that
// examples are not repeated across sessions.
package rotation

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/conorfennell/lexihash/internal/contexthash"
	"github.com/conorfennell/lexihash/internal/domain"
)

// Picker is a source of uniform random indices. *rand.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

// Engine selects examples. It is safe for concurrent use when its Picker is.
type Engine struct {
	picker Picker
}

// New creates an Engine drawing from picker. A nil picker uses the global
// math/rand/v2 source.
func New(picker Picker) *Engine {
	if picker == nil {
		picker = globalPicker{}
	}
	return &Engine{picker: picker}
}

// NewSeeded creates an Engine with a deterministic source that may be
// shared between goroutines.
func NewSeeded(seed uint64) *Engine {
	return New(&lockedPicker{r: rand.New(rand.NewPCG(seed, seed))})
}

type globalPicker struct{}

func (globalPicker) IntN(n int) int { return rand.IntN(n) }

type lockedPicker struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (p *lockedPicker) IntN(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.r.IntN(n)
}

type candidate struct {
	example domain.Example
	hash    string
}

// Next returns the example to show for card given its review history.
// Examples never shown before win, picked uniformly at random. Once every
// usable example has been shown, the least recently shown one is returned,
// ties going to the earlier example in the list. Bad examples are skipped.
// Next returns nil only when the card has no usable example.
func (e *Engine) Next(card domain.Card, history []domain.HistoryEntry) *domain.Example {
	candidates := make([]candidate, 0, len(card.Context))
	for _, ex := range card.Context {
		if ex.IsBad {
			continue
		}
		candidates = append(candidates, candidate{example: ex, hash: contexthash.Hash(ex)})
	}
	if len(candidates) == 0 {
		return nil
	}

	lastShown := LastShown(card.ID, history)

	var fresh []candidate
	for _, c := range candidates {
		if _, seen := lastShown[c.hash]; !seen {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) > 0 {
		pick := fresh[e.picker.IntN(len(fresh))].example
		return &pick
	}

	var oldest *candidate
	var oldestAt time.Time
	for i := range candidates {
		at := lastShown[candidates[i].hash]
		if oldest == nil || at.Before(oldestAt) {
			oldest = &candidates[i]
			oldestAt = at
		}
	}
	if oldest == nil {
		pick := candidates[0].example
		return &pick
	}
	pick := oldest.example
	return &pick
}

// LastShown maps each example hash in history to the most recent date it was
// shown for cardID. Entries for other cards and entries without an example
// are ignored.
func LastShown(cardID int64, history []domain.HistoryEntry) map[string]time.Time {
	shown := make(map[string]time.Time)
	for _, h := range history {
		if h.CardID != cardID || h.ExampleHash == nil {
			continue
		}
		if prev, ok := shown[*h.ExampleHash]; !ok || h.Date.After(prev) {
			shown[*h.ExampleHash] = h.Date
		}
	}
	return shown
}
