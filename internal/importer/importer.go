// Package importer turns spreadsheets of vocabulary into cards.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/lexihash/internal/domain"
)

// Config defines where each field lives in the sheet. Columns are given as
// spreadsheet letters; an empty column is not read.
type Config struct {
	FilePath               string
	SheetName              string // Defaults to the first sheet
	WordColumn             string
	TranslationsColumn     string // ';'-separated translations
	SentenceColumn         string
	SentenceTranslationCol string
	CommentColumn          string
	StartRow               int // 1-based; rows before it are headers
	Source                 string
	SourceLanguage         string
	TargetLanguage         string
}

// DefaultConfig returns the default column layout: word, translations,
// sentence, sentence translation, comment; one header row.
func DefaultConfig(path string) Config {
	return Config{
		FilePath:               path,
		WordColumn:             "A",
		TranslationsColumn:     "B",
		SentenceColumn:         "C",
		SentenceTranslationCol: "D",
		CommentColumn:          "E",
		StartRow:               2,
	}
}

// Result holds the outcome of an import.
type Result struct {
	Cards   []domain.Card
	Rows    int
	Skipped int
	Errors  []string
}

// Supported reports whether the file extension can be imported.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

// Import reads the sheet described by cfg. Rows sharing a word are merged
// into one card with several examples.
func Import(cfg Config) (*Result, error) {
	var rows [][]string
	var err error
	if strings.EqualFold(filepath.Ext(cfg.FilePath), ".csv") {
		rows, err = readCSV(cfg.FilePath)
	} else {
		rows, err = readExcel(cfg.FilePath, cfg.SheetName)
	}
	if err != nil {
		return nil, err
	}
	return buildCards(rows, cfg)
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("excel file %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type columns struct {
	word, translations, sentence, sentenceTranslation, comment int
}

func resolveColumns(cfg Config) (columns, error) {
	idx := func(name string) (int, error) {
		if name == "" {
			return -1, nil
		}
		n, err := excelize.ColumnNameToNumber(name)
		if err != nil {
			return 0, fmt.Errorf("invalid column %q: %w", name, err)
		}
		return n - 1, nil
	}

	var c columns
	var err error
	if cfg.WordColumn == "" {
		return c, fmt.Errorf("word column is required")
	}
	if c.word, err = idx(cfg.WordColumn); err != nil {
		return c, err
	}
	if c.translations, err = idx(cfg.TranslationsColumn); err != nil {
		return c, err
	}
	if c.sentence, err = idx(cfg.SentenceColumn); err != nil {
		return c, err
	}
	if c.sentenceTranslation, err = idx(cfg.SentenceTranslationCol); err != nil {
		return c, err
	}
	if c.comment, err = idx(cfg.CommentColumn); err != nil {
		return c, err
	}
	return c, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func buildCards(rows [][]string, cfg Config) (*Result, error) {
	cols, err := resolveColumns(cfg)
	if err != nil {
		return nil, err
	}
	start := cfg.StartRow
	if start < 1 {
		start = 1
	}

	result := &Result{}
	byWord := make(map[string]int)
	for i, row := range rows {
		if i < start-1 {
			continue
		}
		result.Rows++

		word := cell(row, cols.word)
		if word == "" {
			result.Skipped++
			if len(strings.Join(row, "")) > 0 {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: missing word", i+1))
			}
			continue
		}

		pos, ok := byWord[word]
		if !ok {
			result.Cards = append(result.Cards, domain.Card{
				Word:           word,
				Source:         cfg.Source,
				SourceLanguage: cfg.SourceLanguage,
				TargetLanguage: cfg.TargetLanguage,
			})
			pos = len(result.Cards) - 1
			byWord[word] = pos
		}
		card := &result.Cards[pos]

		for _, t := range strings.Split(cell(row, cols.translations), ";") {
			if t = strings.TrimSpace(t); t != "" && !slices.Contains(card.Translations, t) {
				card.Translations = append(card.Translations, t)
			}
		}
		if s := cell(row, cols.sentence); s != "" {
			card.Context = append(card.Context, domain.Example{
				Sentence:    s,
				Translation: cell(row, cols.sentenceTranslation),
			})
		}
		if c := cell(row, cols.comment); c != "" {
			if card.Comment != "" {
				card.Comment += "\n"
			}
			card.Comment += c
		}
	}
	return result, nil
}

