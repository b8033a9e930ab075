package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/lexihash/internal/domain"
)

// History retrieves a card's review history, oldest first.
func (db *DB) History(ctx context.Context, cardID int64) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	if err := db.conn.SelectContext(ctx, &entries, `
		SELECT id, card_id, date, success, example_hash, type
		FROM history WHERE card_id = ?
		ORDER BY date, id
	`, cardID); err != nil {
		return nil, fmt.Errorf("failed to get history for card %d: %w", cardID, err)
	}
	return entries, nil
}

// CommitReview appends entry to the history and stores the card's new level
// and last repeat date in one transaction. The entry is written first so a
// level change never exists without its history record. It returns the
// stored entry with its ID set.
func (db *DB) CommitReview(ctx context.Context, card domain.Card, entry domain.HistoryEntry) (domain.HistoryEntry, error) {
	if entry.CardID != card.ID {
		return domain.HistoryEntry{}, fmt.Errorf("history entry for card %d cannot be committed with card %d", entry.CardID, card.ID)
	}

	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO history (card_id, date, success, example_hash, type)
			VALUES (?, ?, ?, ?, ?)
		`, entry.CardID, utc(entry.Date), entry.Success, entry.ExampleHash, entry.Type)
		if err != nil {
			return fmt.Errorf("failed to insert history for card %d: %w", card.ID, err)
		}
		if entry.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get history ID for card %d: %w", card.ID, err)
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE cards SET level = ?, last_repeat = ? WHERE id = ?
		`, card.Level, utc(card.LastRepeat), card.ID)
		if err != nil {
			return fmt.Errorf("failed to update level for card %d: %w", card.ID, err)
		}
		return expectRow(res, fmt.Sprintf("card %d", card.ID))
	})
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	return entry, nil
}
