package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lexihash/internal/contexthash"
	"github.com/conorfennell/lexihash/internal/domain"
)

var now = time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

func TestRecord(t *testing.T) {
	ex := domain.Example{ID: 3, Sentence: "Ich <em>lese</em>.", Translation: "I read."}
	card := domain.Card{
		ID:           11,
		Word:         "lesen",
		Translations: []string{"to read"},
		Level:        3,
		LastRepeat:   now.Add(-72 * time.Hour),
		Context:      []domain.Example{ex},
	}

	t.Run("success advances level", func(t *testing.T) {
		updated, entry, err := Record(card, true, &ex, "choice", now)
		require.NoError(t, err)

		assert.Equal(t, 5, updated.Level)
		assert.Equal(t, now, updated.LastRepeat)
		assert.Equal(t, card.Word, updated.Word)

		assert.Equal(t, int64(11), entry.CardID)
		assert.True(t, entry.Success)
		assert.Equal(t, now, entry.Date)
		require.NotNil(t, entry.ExampleHash)
		assert.Equal(t, contexthash.Hash(ex), *entry.ExampleHash)
		require.NotNil(t, entry.Type)
		assert.Equal(t, "choice", *entry.Type)
	})

	t.Run("failure resets level", func(t *testing.T) {
		updated, entry, err := Record(card, false, nil, "", now)
		require.NoError(t, err)
		assert.Equal(t, 0, updated.Level)
		assert.False(t, entry.Success)
		assert.Nil(t, entry.ExampleHash)
		assert.Nil(t, entry.Type)
	})

	t.Run("input card is not modified", func(t *testing.T) {
		updated, _, err := Record(card, true, nil, "", now)
		require.NoError(t, err)
		updated.Translations[0] = "changed"
		assert.Equal(t, 3, card.Level)
		assert.Equal(t, "to read", card.Translations[0])
	})

	t.Run("same inputs give same outputs", func(t *testing.T) {
		c1, e1, err := Record(card, true, &ex, "typing", now)
		require.NoError(t, err)
		c2, e2, err := Record(card, true, &ex, "typing", now)
		require.NoError(t, err)
		assert.Equal(t, c1, c2)
		assert.Equal(t, e1, e2)
	})

	t.Run("negative level is rejected", func(t *testing.T) {
		bad := card
		bad.Level = -1
		_, _, err := Record(bad, true, nil, "", now)
		require.ErrorIs(t, err, domain.ErrInvalidLevel)
	})
}
