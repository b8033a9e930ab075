package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/lexihash/internal/domain"
)

const (
	wordPrefix        = "W:"
	translationPrefix = "T:"
	sentencePrefix    = "S:"
	renderingPrefix   = "X:"
	notePrefix        = "N:"

	sourceDirective = "@source:"
	fromDirective   = "@from:"
	toDirective     = "@to:"

	separator = "---"
)

type state int

const (
	seeking state = iota
	readingWord
	readingNote
)

// ParseFile reads a deck file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a deck from an io.Reader and extracts all cards.
//
// A deck lists cards as prefixed lines:
//
//	W: word
//	T: translation (repeatable)
//	S: example sentence
//	X: translation of the preceding sentence
//	N: comment, continued on following unprefixed lines
//	---
//
// Directives @source:, @from: and @to: set the provenance and languages of
// every card in the deck. Cards without a word are dropped.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Card
	var currentCard domain.Card
	var noteLines []string
	var source, from, to string
	currentState := seeking

	flushNote := func() {
		if len(noteLines) == 0 {
			return
		}
		note := strings.TrimSpace(strings.Join(noteLines, "\n"))
		if currentCard.Comment != "" {
			note = currentCard.Comment + "\n" + note
		}
		currentCard.Comment = note
		noteLines = nil
	}

	finishCard := func() {
		flushNote()
		if currentCard.Word != "" {
			cards = append(cards, currentCard)
		}
		currentCard = domain.Card{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == separator:
			finishCard()
			continue
		case strings.HasPrefix(line, sourceDirective):
			source = value(line, sourceDirective)
			continue
		case strings.HasPrefix(line, fromDirective):
			from = value(line, fromDirective)
			continue
		case strings.HasPrefix(line, toDirective):
			to = value(line, toDirective)
			continue
		}

		isW := strings.HasPrefix(line, wordPrefix)
		isT := strings.HasPrefix(line, translationPrefix)
		isS := strings.HasPrefix(line, sentencePrefix)
		isX := strings.HasPrefix(line, renderingPrefix)
		isN := strings.HasPrefix(line, notePrefix)

		if isW || isT || isS || isX || isN {
			if currentState == readingNote {
				flushNote()
			}
			if isW {
				if currentState != seeking { // A new word always starts a new card
					finishCard()
				}
				currentState = readingWord
				currentCard.Word = value(line, wordPrefix)
				continue
			}
			if currentState == seeking {
				continue
			}
			currentState = readingWord

			switch {
			case isT:
				if t := value(line, translationPrefix); t != "" {
					currentCard.Translations = append(currentCard.Translations, t)
				}
			case isS:
				currentCard.Context = append(currentCard.Context, domain.Example{
					Sentence: value(line, sentencePrefix),
				})
			case isX:
				n := len(currentCard.Context)
				if n == 0 || currentCard.Context[n-1].Translation != "" {
					continue // A translation without its sentence is ignored
				}
				currentCard.Context[n-1].Translation = value(line, renderingPrefix)
			case isN:
				currentState = readingNote
				noteLines = append(noteLines, value(line, notePrefix))
			}
		} else if currentState == readingNote {
			noteLines = append(noteLines, line)
		}
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i := range cards {
		cards[i].Source = source
		cards[i].SourceLanguage = from
		cards[i].TargetLanguage = to
		cards[i].Context = dropEmpty(cards[i].Context)
	}
	return cards, nil
}

func value(line, prefix string) string {
	return strings.TrimSpace(line[len(prefix):])
}

func dropEmpty(examples []domain.Example) []domain.Example {
	out := examples[:0]
	for _, ex := range examples {
		if ex.Sentence != "" {
			out = append(out, ex)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
