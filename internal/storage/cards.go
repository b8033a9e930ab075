package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/lexihash/internal/contexthash"
	"github.com/conorfennell/lexihash/internal/domain"
)

const cardColumns = `id, word, level, last_repeat, comment, source, source_language, target_language`

type translationRow struct {
	CardID int64  `db:"card_id"`
	Text   string `db:"text"`
}

type exampleRow struct {
	domain.Example
	CardID int64  `db:"card_id"`
	Hash   string `db:"hash"`
}

// InsertCard stores a new card with its translations and examples and
// returns its ID. sourceID links the card to a sync source; 0 means none.
func (db *DB) InsertCard(ctx context.Context, card domain.Card, sourceID int64) (int64, error) {
	if err := card.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		var src sql.NullInt64
		if sourceID != 0 {
			src = sql.NullInt64{Int64: sourceID, Valid: true}
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO cards (word, level, last_repeat, comment, source, source_language, target_language, source_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			card.Word,
			card.Level,
			utc(card.LastRepeat),
			card.Comment,
			card.Source,
			card.SourceLanguage,
			card.TargetLanguage,
			src,
			utc(time.Now()),
		)
		if err != nil {
			return fmt.Errorf("failed to insert card %q: %w", card.Word, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get last insert ID for card %q: %w", card.Word, err)
		}

		for i, t := range card.Translations {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO card_translations (card_id, position, text) VALUES (?, ?, ?)
			`, id, i, t); err != nil {
				return fmt.Errorf("failed to insert translation for card %d: %w", id, err)
			}
		}
		return insertExamples(ctx, tx, id, 0, card.Context)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func insertExamples(ctx context.Context, tx *sqlx.Tx, cardID int64, firstPosition int, examples []domain.Example) error {
	for i, ex := range examples {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO examples (card_id, position, sentence, translation, hash, is_bad)
			VALUES (?, ?, ?, ?, ?, ?)
		`, cardID, firstPosition+i, ex.Sentence, ex.Translation, contexthash.Hash(ex), ex.IsBad); err != nil {
			return fmt.Errorf("failed to insert example for card %d: %w", cardID, err)
		}
	}
	return nil
}

// GetCard retrieves a card with its translations and examples.
func (db *DB) GetCard(ctx context.Context, id int64) (domain.Card, error) {
	cards, err := db.loadCards(ctx, db.conn, `id = ?`, id)
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to get card %d: %w", id, err)
	}
	if len(cards) == 0 {
		return domain.Card{}, fmt.Errorf("card %d: %w", id, ErrNotFound)
	}
	return cards[0], nil
}

// ListCards retrieves all cards ordered by ID.
func (db *DB) ListCards(ctx context.Context) ([]domain.Card, error) {
	cards, err := db.loadCards(ctx, db.conn, `1 = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, nil
}

// CardsBySource retrieves all cards that were synced from a source.
func (db *DB) CardsBySource(ctx context.Context, sourceID int64) ([]domain.Card, error) {
	cards, err := db.loadCards(ctx, db.conn, `source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	return cards, nil
}

// FindCardByWord retrieves the oldest card for a word in a language.
func (db *DB) FindCardByWord(ctx context.Context, word, sourceLanguage string) (domain.Card, error) {
	cards, err := db.loadCards(ctx, db.conn, `word = ? AND source_language = ?`, word, sourceLanguage)
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to find card %q: %w", word, err)
	}
	if len(cards) == 0 {
		return domain.Card{}, fmt.Errorf("card %q: %w", word, ErrNotFound)
	}
	return cards[0], nil
}

// loadCards selects the cards matching where and attaches their
// translations and examples in order.
func (db *DB) loadCards(ctx context.Context, q sqlx.QueryerContext, where string, args ...any) ([]domain.Card, error) {
	var cards []domain.Card
	if err := sqlx.SelectContext(ctx, q, &cards,
		`SELECT `+cardColumns+` FROM cards WHERE `+where+` ORDER BY id`, args...); err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return cards, nil
	}

	byID := make(map[int64]*domain.Card, len(cards))
	for i := range cards {
		byID[cards[i].ID] = &cards[i]
	}

	var translations []translationRow
	if err := sqlx.SelectContext(ctx, q, &translations, `
		SELECT card_id, text FROM card_translations
		WHERE card_id IN (SELECT id FROM cards WHERE `+where+`)
		ORDER BY card_id, position
	`, args...); err != nil {
		return nil, err
	}
	for _, t := range translations {
		if c, ok := byID[t.CardID]; ok {
			c.Translations = append(c.Translations, t.Text)
		}
	}

	var examples []exampleRow
	if err := sqlx.SelectContext(ctx, q, &examples, `
		SELECT id, card_id, sentence, translation, hash, is_bad FROM examples
		WHERE card_id IN (SELECT id FROM cards WHERE `+where+`)
		ORDER BY card_id, position
	`, args...); err != nil {
		return nil, err
	}
	for _, ex := range examples {
		if c, ok := byID[ex.CardID]; ok {
			c.Context = append(c.Context, ex.Example)
		}
	}
	return cards, nil
}

// UpdateComment replaces a card's free-text comment.
func (db *DB) UpdateComment(ctx context.Context, cardID int64, comment string) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE cards SET comment = ? WHERE id = ?`, comment, cardID)
	if err != nil {
		return fmt.Errorf("failed to update comment for card %d: %w", cardID, err)
	}
	return expectRow(res, fmt.Sprintf("card %d", cardID))
}

// ReplaceExamples rewrites a card's example list. Examples whose content hash
// is unchanged keep their bad flag.
func (db *DB) ReplaceExamples(ctx context.Context, cardID int64, examples []domain.Example) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := cardExists(ctx, tx, cardID); err != nil {
			return err
		}

		var badHashes []string
		if err := tx.SelectContext(ctx, &badHashes,
			`SELECT hash FROM examples WHERE card_id = ? AND is_bad = 1`, cardID); err != nil {
			return fmt.Errorf("failed to read examples for card %d: %w", cardID, err)
		}
		bad := make(map[string]bool, len(badHashes))
		for _, h := range badHashes {
			bad[h] = true
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM examples WHERE card_id = ?`, cardID); err != nil {
			return fmt.Errorf("failed to delete examples for card %d: %w", cardID, err)
		}

		merged := make([]domain.Example, len(examples))
		for i, ex := range examples {
			if bad[contexthash.Hash(ex)] {
				ex.IsBad = true
			}
			merged[i] = ex
		}
		return insertExamples(ctx, tx, cardID, 0, merged)
	})
}

// AppendExamples adds examples to the end of a card's list, skipping any
// whose content hash the card already has. It returns how many were added.
func (db *DB) AppendExamples(ctx context.Context, cardID int64, examples []domain.Example) (int, error) {
	var added int
	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := cardExists(ctx, tx, cardID); err != nil {
			return err
		}

		var hashes []string
		if err := tx.SelectContext(ctx, &hashes, `SELECT hash FROM examples WHERE card_id = ?`, cardID); err != nil {
			return fmt.Errorf("failed to read examples for card %d: %w", cardID, err)
		}
		seen := make(map[string]bool, len(hashes))
		for _, h := range hashes {
			seen[h] = true
		}

		var next sql.NullInt64
		if err := tx.GetContext(ctx, &next,
			`SELECT MAX(position) + 1 FROM examples WHERE card_id = ?`, cardID); err != nil {
			return fmt.Errorf("failed to read example positions for card %d: %w", cardID, err)
		}

		var fresh []domain.Example
		for _, ex := range examples {
			h := contexthash.Hash(ex)
			if seen[h] {
				continue
			}
			seen[h] = true
			fresh = append(fresh, ex)
		}
		added = len(fresh)
		return insertExamples(ctx, tx, cardID, int(next.Int64), fresh)
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// SetExampleBad flags or unflags the card's example with the given content
// hash.
func (db *DB) SetExampleBad(ctx context.Context, cardID int64, hash string, bad bool) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE examples SET is_bad = ? WHERE card_id = ? AND hash = ?`, bad, cardID, hash)
	if err != nil {
		return fmt.Errorf("failed to flag example %s of card %d: %w", hash, cardID, err)
	}
	return expectRow(res, fmt.Sprintf("example %s of card %d", hash, cardID))
}

// DeleteCard removes a card. Its translations, examples and history go with
// it.
func (db *DB) DeleteCard(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %d: %w", id, err)
	}
	return expectRow(res, fmt.Sprintf("card %d", id))
}

func cardExists(ctx context.Context, tx *sqlx.Tx, cardID int64) error {
	var id int64
	err := tx.GetContext(ctx, &id, `SELECT id FROM cards WHERE id = ?`, cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("card %d: %w", cardID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to find card %d: %w", cardID, err)
	}
	return nil
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// inTx runs fn in a transaction, committing when it returns nil.
func (db *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("failed to roll back transaction", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
