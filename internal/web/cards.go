package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/lexihash/internal/contexthash"
	"github.com/conorfennell/lexihash/internal/domain"
	"github.com/conorfennell/lexihash/internal/due"
	"github.com/conorfennell/lexihash/internal/interval"
	"github.com/conorfennell/lexihash/internal/review"
)

// cardResponse adds the content hash of every example, in context order,
// so clients can refer to examples by hash.
type cardResponse struct {
	domain.Card
	ExampleHashes []string  `json:"exampleHashes"`
	NextReview    time.Time `json:"nextReview"`
}

func newCardResponse(card domain.Card) cardResponse {
	hashes := make([]string, len(card.Context))
	for i, ex := range card.Context {
		hashes[i] = contexthash.Hash(ex)
	}
	return cardResponse{
		Card:          card,
		ExampleHashes: hashes,
		NextReview:    due.NextReview(card).UTC(),
	}
}

func newCardResponses(cards []domain.Card) []cardResponse {
	out := make([]cardResponse, len(cards))
	for i, c := range cards {
		out[i] = newCardResponse(c)
	}
	return out
}

type exampleResponse struct {
	domain.Example
	Hash string `json:"hash"`
}

type reviewRequest struct {
	Success     *bool  `json:"success" validate:"required"`
	ExampleHash string `json:"exampleHash" validate:"omitempty,len=16,hexadecimal"`
	Type        string `json:"type" validate:"max=64"`
}

type reviewResponse struct {
	Card  cardResponse        `json:"card"`
	Entry domain.HistoryEntry `json:"entry"`
}

type historyResponse struct {
	Entries []domain.HistoryEntry `json:"entries"`
	Stats   review.Stats          `json:"stats"`
}

type markRequest struct {
	Bad *bool `json:"bad" validate:"required"`
}

type appendRequest struct {
	Examples []domain.Example `json:"examples" validate:"min=1,dive"`
}

type replaceRequest struct {
	Examples []domain.Example `json:"examples" validate:"dive"`
}

type commentRequest struct {
	Comment string `json:"comment"`
}

// handleGetCards lists every card.
func (s *Server) handleGetCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cards, err := s.db.ListCards(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, newCardResponses(cards))
	}
}

// handleCreateCard stores a new card. New cards start at level 0 and are
// due immediately.
func (s *Server) handleCreateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var card domain.Card
		if err := s.decode(w, r, &card); err != nil {
			writeError(w, r, err)
			return
		}
		card.ID = 0
		card.Level = 0
		card.LastRepeat = s.now()

		id, err := s.db.InsertCard(r.Context(), card, 0)
		if err != nil {
			writeError(w, r, err)
			return
		}
		stored, err := s.db.GetCard(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, newCardResponse(stored))
	}
}

func (s *Server) handleGetCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		card, err := s.db.GetCard(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, newCardResponse(card))
	}
}

// handleDeleteCard removes a card together with its examples and history.
func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.db.DeleteCard(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleGetDue lists the cards due now.
func (s *Server) handleGetDue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cards, err := s.reviews.Due(r.Context(), s.now())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, newCardResponses(cards))
	}
}

// handleGetForecast counts the cards falling due on each upcoming day.
func (s *Server) handleGetForecast() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days, err := queryInt(r, "days", 7, 366)
		if err != nil {
			writeError(w, r, err)
			return
		}
		cards, err := s.db.ListCards(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		counts, err := due.Forecast(cards, s.now(), days)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string][]int{"days": counts})
	}
}

// handleGetLevels lists the levels a card passes through.
func (s *Server) handleGetLevels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := queryInt(r, "n", 10, 40)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string][]int{"levels": interval.Ladder(n)})
	}
}

// handleGetNextExample returns the example to show with the card, or 204
// when it has no usable example.
func (s *Server) handleGetNextExample() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		ex, err := s.reviews.NextExample(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if ex == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, r, http.StatusOK, exampleResponse{Example: *ex, Hash: contexthash.Hash(*ex)})
	}
}

// handlePostReview records the outcome of a review.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req reviewRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		card, entry, err := s.reviews.Submit(r.Context(), id, review.Submission{
			Success:     *req.Success,
			ExampleHash: req.ExampleHash,
			Type:        req.Type,
		}, s.now())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, reviewResponse{Card: newCardResponse(card), Entry: entry})
	}
}

// handleGetHistory returns a card's review history with summary stats.
func (s *Server) handleGetHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := s.db.GetCard(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		history, err := s.db.History(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if history == nil {
			history = []domain.HistoryEntry{}
		}
		writeJSON(w, r, http.StatusOK, historyResponse{Entries: history, Stats: review.Summarize(history)})
	}
}

// handleMarkExample flags or unflags an example as bad.
func (s *Server) handleMarkExample() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req markRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.db.SetExampleBad(r.Context(), id, chi.URLParam(r, "hash"), *req.Bad); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleAppendExamples adds examples to a card, skipping ones it already
// has.
func (s *Server) handleAppendExamples() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req appendRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		added, err := s.db.AppendExamples(r.Context(), id, req.Examples)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]int{"added": added})
	}
}

// handleReplaceExamples rewrites a card's example list. History keeps
// pointing at examples by content hash, so reordering is safe.
func (s *Server) handleReplaceExamples() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req replaceRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.db.ReplaceExamples(r.Context(), id, req.Examples); err != nil {
			writeError(w, r, err)
			return
		}
		card, err := s.db.GetCard(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, newCardResponse(card))
	}
}

func (s *Server) handleUpdateComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req commentRequest
		if err := s.decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.db.UpdateComment(r.Context(), id, req.Comment); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
