package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidLevel is returned when a card level is negative or has no
	// successor.
	ErrInvalidLevel = errors.New("invalid card level")
	// ErrInvalidCard is returned when a card fails validation.
	ErrInvalidCard = errors.New("invalid card")
)

var validate = NewValidator()

// NewValidator returns a validator that knows the domain's custom tags.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("level", func(fl validator.FieldLevel) bool {
		return IsLevel(int(fl.Field().Int()))
	}); err != nil {
		panic(fmt.Sprintf("failed to register level validation: %v", err))
	}
	return v
}

// IsLevel reports whether a card can hold level: 0 or one of 2, 3, 5, 8, 13, ...
func IsLevel(level int) bool {
	if level == 0 {
		return true
	}
	a, b := 2, 3
	for a < level {
		if b > math.MaxInt-a {
			return b == level
		}
		a, b = b, a+b
	}
	return a == level
}

// Card is a vocabulary item under review.
// Level is the number of days between reviews and only ever takes values
// produced by the interval package: 0, 2, 3, 5, 8, 13, ...
type Card struct {
	ID             int64     `json:"id" db:"id"`
	Word           string    `json:"word" db:"word" validate:"required"`
	Translations   []string  `json:"translations" db:"-" validate:"dive,required"`
	Level          int       `json:"level" db:"level" validate:"level"`
	LastRepeat     time.Time `json:"lastRepeat" db:"last_repeat"`
	Context        []Example `json:"context" db:"-" validate:"dive"`
	Comment        string    `json:"comment" db:"comment"`
	Source         string    `json:"source" db:"source"`
	SourceLanguage string    `json:"sourceLanguage" db:"source_language" validate:"omitempty,bcp47_language_tag"`
	TargetLanguage string    `json:"targetLanguage" db:"target_language" validate:"omitempty,bcp47_language_tag"`
}

// Example is one sentence pair illustrating a card. Bad examples are never
// chosen for review.
type Example struct {
	ID          int64  `json:"id" db:"id"`
	Sentence    string `json:"sentence" db:"sentence" validate:"required"`
	Translation string `json:"translation" db:"translation"`
	IsBad       bool   `json:"isBad" db:"is_bad"`
}

// HistoryEntry records a single review attempt. Entries are append-only.
// ExampleHash references the example shown by content hash, never by
// position.
type HistoryEntry struct {
	ID          int64     `json:"id" db:"id"`
	Date        time.Time `json:"date" db:"date"`
	Success     bool      `json:"success" db:"success"`
	CardID      int64     `json:"cardId" db:"card_id"`
	ExampleHash *string   `json:"exampleHash" db:"example_hash"`
	Type        *string   `json:"type" db:"type"`
}

// Validate checks the card's fields before it is stored.
func (c Card) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCard, err)
	}
	return nil
}

// Clone returns a copy of the card that shares no slices with the original.
func (c Card) Clone() Card {
	out := c
	if c.Translations != nil {
		out.Translations = append([]string(nil), c.Translations...)
	}
	if c.Context != nil {
		out.Context = append([]Example(nil), c.Context...)
	}
	return out
}
