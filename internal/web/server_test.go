package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lexihash/internal/domain"
	"github.com/conorfennell/lexihash/internal/review"
	"github.com/conorfennell/lexihash/internal/rotation"
	"github.com/conorfennell/lexihash/internal/storage"
	"github.com/conorfennell/lexihash/internal/sync"
)

var now = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type firstPicker struct{}

func (firstPicker) IntN(int) int { return 0 }

func setupServer(t *testing.T) (*Server, *storage.DB) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "lexihash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reviews := review.NewService(db, rotation.New(firstPicker{}), nil)
	s := NewServer(db, reviews, sync.New(db, filepath.Join(dir, "repos"), nil), nil)
	s.now = func() time.Time { return now }
	return s, db
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func createCard(t *testing.T, s *Server) cardResponse {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/cards", map[string]any{
		"word":         "Fenster",
		"translations": []string{"window"},
		"context": []map[string]string{
			{"sentence": "Das <em>Fenster</em> ist offen.", "translation": "The window is open."},
			{"sentence": "Mach das <em>Fenster</em> zu.", "translation": "Close the window."},
		},
		"sourceLanguage": "de",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[cardResponse](t, rec)
}

func TestCardLifecycle(t *testing.T) {
	s, _ := setupServer(t)
	card := createCard(t, s)
	assert.Equal(t, 0, card.Level)
	require.Len(t, card.ExampleHashes, 2)
	assert.True(t, card.NextReview.Equal(now))

	rec := do(t, s, http.MethodGet, "/cards", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]cardResponse](t, rec), 1)

	rec = do(t, s, http.MethodGet, "/cards/due", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]cardResponse](t, rec), 1)

	rec = do(t, s, http.MethodGet, "/cards/1/example", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ex := decodeBody[exampleResponse](t, rec)
	assert.Equal(t, card.ExampleHashes[0], ex.Hash)

	rec = do(t, s, http.MethodPost, "/cards/1/reviews", map[string]any{
		"success":     true,
		"exampleHash": ex.Hash,
		"type":        "translate",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decodeBody[reviewResponse](t, rec)
	assert.Equal(t, 2, result.Card.Level)
	require.NotNil(t, result.Entry.ExampleHash)
	assert.Equal(t, ex.Hash, *result.Entry.ExampleHash)

	rec = do(t, s, http.MethodGet, "/cards/due", nil)
	assert.Empty(t, decodeBody[[]cardResponse](t, rec))

	// The shown example is now the least fresh; the other one comes next.
	rec = do(t, s, http.MethodGet, "/cards/1/example", nil)
	assert.Equal(t, card.ExampleHashes[1], decodeBody[exampleResponse](t, rec).Hash)

	rec = do(t, s, http.MethodGet, "/cards/1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeBody[historyResponse](t, rec)
	assert.Len(t, history.Entries, 1)
	assert.Equal(t, 1, history.Stats.Streak)

	rec = do(t, s, http.MethodDelete, "/cards/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, "/cards/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExampleEditing(t *testing.T) {
	s, _ := setupServer(t)
	card := createCard(t, s)

	for _, hash := range card.ExampleHashes {
		rec := do(t, s, http.MethodPut, "/cards/1/examples/"+hash+"/bad", map[string]bool{"bad": true})
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/cards/1/example", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, "only bad examples left")

	rec = do(t, s, http.MethodPut, "/cards/1/examples/0000000000000000/bad", map[string]bool{"bad": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/cards/1/examples", map[string]any{
		"examples": []domain.Example{
			{Sentence: "Das <em>Fenster</em> ist offen.", Translation: "The window is open."},
			{Sentence: "Ein kleines <em>Fenster</em>."},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decodeBody[map[string]int](t, rec)["added"])

	rec = do(t, s, http.MethodGet, "/cards/1/example", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ein kleines <em>Fenster</em>.", decodeBody[exampleResponse](t, rec).Sentence)

	// Replacing the list keeps the bad flag of an unchanged example.
	rec = do(t, s, http.MethodPut, "/cards/1/examples", map[string]any{
		"examples": []domain.Example{
			{Sentence: "Neu."},
			{Sentence: "Mach das <em>Fenster</em> zu.", Translation: "Close the window."},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	replaced := decodeBody[cardResponse](t, rec)
	require.Len(t, replaced.Context, 2)
	assert.False(t, replaced.Context[0].IsBad)
	assert.True(t, replaced.Context[1].IsBad)
	assert.Equal(t, card.ExampleHashes[1], replaced.ExampleHashes[1])

	rec = do(t, s, http.MethodPut, "/cards/1/comment", map[string]string{"comment": "neuter"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, "/cards/1", nil)
	assert.Equal(t, "neuter", decodeBody[cardResponse](t, rec).Comment)
}

func TestErrors(t *testing.T) {
	s, _ := setupServer(t)
	createCard(t, s)

	testCases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown card", http.MethodGet, "/cards/42", nil, http.StatusNotFound},
		{"invalid id", http.MethodGet, "/cards/abc", nil, http.StatusBadRequest},
		{"card without word", http.MethodPost, "/cards", map[string]any{"translations": []string{"x"}}, http.StatusBadRequest},
		{"invalid language", http.MethodPost, "/cards", map[string]any{"word": "x", "sourceLanguage": "not a tag"}, http.StatusBadRequest},
		{"off-ladder level", http.MethodPost, "/cards", map[string]any{"word": "x", "level": 4}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/cards", map[string]any{"word": "x", "colour": "red"}, http.StatusBadRequest},
		{"review without outcome", http.MethodPost, "/cards/1/reviews", map[string]any{}, http.StatusBadRequest},
		{"review of unknown example", http.MethodPost, "/cards/1/reviews", map[string]any{"success": true, "exampleHash": "abcdefabcdefabcd"}, http.StatusBadRequest},
		{"review of unknown card", http.MethodPost, "/cards/9/reviews", map[string]any{"success": true}, http.StatusNotFound},
		{"history of unknown card", http.MethodGet, "/cards/9/history", nil, http.StatusNotFound},
		{"empty append", http.MethodPost, "/cards/1/examples", map[string]any{"examples": []any{}}, http.StatusBadRequest},
		{"bad forecast", http.MethodGet, "/forecast?days=0", nil, http.StatusBadRequest},
		{"bad levels", http.MethodGet, "/levels?n=x", nil, http.StatusBadRequest},
		{"unknown source", http.MethodDelete, "/sources/5", nil, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody[errorResponse](t, rec).Error)
		})
	}
}

func TestForecastAndLevels(t *testing.T) {
	s, _ := setupServer(t)
	createCard(t, s)

	rec := do(t, s, http.MethodGet, "/forecast?days=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{1, 0, 0}, decodeBody[map[string][]int](t, rec)["days"])

	rec = do(t, s, http.MethodGet, "/levels?n=6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{0, 2, 3, 5, 8, 13}, decodeBody[map[string][]int](t, rec)["levels"])
}

func TestSourcesAndSync(t *testing.T) {
	s, db := setupServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deck.md"), []byte("W: Haus\nT: house\n"), 0o644))

	rec := do(t, s, http.MethodPost, "/sources", map[string]string{"path": dir})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	source := decodeBody[storage.Source](t, rec)

	rec = do(t, s, http.MethodPost, "/sources", map[string]string{"path": filepath.Join(dir, "missing")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/sources", map[string]string{"path": dir})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[sync.Report](t, rec)
	assert.Equal(t, 1, report.Inserted)

	_, err := db.FindCardByWord(context.Background(), "Haus", "")
	require.NoError(t, err)

	rec = do(t, s, http.MethodGet, "/sources", nil)
	sources := decodeBody[[]storage.Source](t, rec)
	require.Len(t, sources, 1)
	assert.NotNil(t, sources[0].LastScanned)

	rec = do(t, s, http.MethodDelete, "/sources/"+strconv.FormatInt(source.ID, 10), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAddSourceStorageFailure(t *testing.T) {
	s, db := setupServer(t)
	require.NoError(t, db.Close())

	rec := do(t, s, http.MethodPost, "/sources", map[string]string{"path": t.TempDir()})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestID(t *testing.T) {
	s, _ := setupServer(t)

	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get(RequestIDHeader))
}
