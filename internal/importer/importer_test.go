package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportCSV(t *testing.T) {
	path := writeCSV(t, `word,translations,sentence,sentence translation,comment
Haus,house; building,Das <em>Haus</em> ist alt.,The house is old.,neuter
Haus,house,Ein großes <em>Haus</em>.,A big house.,
,,,,
Baum,tree
,orphan translation
`)

	cfg := DefaultConfig(path)
	cfg.Source = "Märchen"
	cfg.SourceLanguage = "de"
	result, err := Import(cfg)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Rows)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, result.Errors, 1, "only the non-empty row without a word is reported")
	require.Len(t, result.Cards, 2)

	haus := result.Cards[0]
	assert.Equal(t, "Haus", haus.Word)
	assert.Equal(t, []string{"house", "building"}, haus.Translations)
	require.Len(t, haus.Context, 2)
	assert.Equal(t, "A big house.", haus.Context[1].Translation)
	assert.Equal(t, "neuter", haus.Comment)
	assert.Equal(t, "Märchen", haus.Source)
	assert.Equal(t, "de", haus.SourceLanguage)

	baum := result.Cards[1]
	assert.Equal(t, []string{"tree"}, baum.Translations)
	assert.Empty(t, baum.Context)
}

func TestImportExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"word", "translations", "sentence", "translation"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Katze", "cat", "Die <em>Katze</em> schläft.", "The cat sleeps."}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Hund", "dog"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	result, err := Import(DefaultConfig(path))
	require.NoError(t, err)
	require.Len(t, result.Cards, 2)
	assert.Equal(t, "Katze", result.Cards[0].Word)
	require.Len(t, result.Cards[0].Context, 1)
	assert.Equal(t, "The cat sleeps.", result.Cards[0].Context[0].Translation)
	assert.Equal(t, "Hund", result.Cards[1].Word)
}

func TestImportCustomColumns(t *testing.T) {
	path := writeCSV(t, "tree,Baum\n")
	cfg := Config{FilePath: path, WordColumn: "B", TranslationsColumn: "A", StartRow: 1}
	result, err := Import(cfg)
	require.NoError(t, err)
	require.Len(t, result.Cards, 1)
	assert.Equal(t, "Baum", result.Cards[0].Word)
	assert.Equal(t, []string{"tree"}, result.Cards[0].Translations)
}

func TestImportErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Import(DefaultConfig(filepath.Join(t.TempDir(), "missing.csv")))
		require.Error(t, err)
	})

	t.Run("no word column", func(t *testing.T) {
		cfg := DefaultConfig(writeCSV(t, "a,b\n"))
		cfg.WordColumn = ""
		_, err := Import(cfg)
		require.Error(t, err)
	})

	t.Run("invalid column", func(t *testing.T) {
		cfg := DefaultConfig(writeCSV(t, "a,b\n"))
		cfg.CommentColumn = "1"
		_, err := Import(cfg)
		require.Error(t, err)
	})
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.xlsx"))
	assert.True(t, Supported("a.CSV"))
	assert.False(t, Supported("a.md"))
}
