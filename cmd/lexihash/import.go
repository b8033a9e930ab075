package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/lexihash/internal/importer"
)

func newImportCmd() *cobra.Command {
	var (
		cfg    importer.Config
		dryRun bool
	)
	defaults := importer.DefaultConfig("")

	cmd := &cobra.Command{
		Use:   "import <file.xlsx|file.csv>",
		Short: "Import cards from a spreadsheet",
		Long: "Reads one card per row. Rows repeating a word add further examples to it.\n" +
			"Words already stored gain the examples they are missing.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.FilePath = args[0]
			if !importer.Supported(cfg.FilePath) {
				return fmt.Errorf("unsupported file type: %s", cfg.FilePath)
			}
			result, err := importer.Import(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Read %d rows (%d skipped) into %d cards.\n", result.Rows, result.Skipped, len(result.Cards))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "- %s\n", e)
			}
			if dryRun {
				return nil
			}

			return withDeps(cmd, func(d *Deps) error {
				printReport(cmd, d.Syncer().Import(cmd.Context(), result.Cards))
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.SheetName, "sheet", "", "Sheet to read (default: the first sheet)")
	f.StringVar(&cfg.WordColumn, "word-col", defaults.WordColumn, "Column holding the word")
	f.StringVar(&cfg.TranslationsColumn, "translations-col", defaults.TranslationsColumn, "Column holding ';'-separated translations")
	f.StringVar(&cfg.SentenceColumn, "sentence-col", defaults.SentenceColumn, "Column holding an example sentence")
	f.StringVar(&cfg.SentenceTranslationCol, "sentence-translation-col", defaults.SentenceTranslationCol, "Column holding the sentence translation")
	f.StringVar(&cfg.CommentColumn, "comment-col", defaults.CommentColumn, "Column holding a comment")
	f.IntVar(&cfg.StartRow, "start-row", defaults.StartRow, "First row holding data (1-based)")
	f.StringVar(&cfg.Source, "source", "", "Where the words come from, e.g. a book title")
	f.StringVar(&cfg.SourceLanguage, "from", "", "Language of the words (BCP 47)")
	f.StringVar(&cfg.TargetLanguage, "to", "", "Language of the translations (BCP 47)")
	f.BoolVar(&dryRun, "dry-run", false, "Parse the file without storing anything")

	return cmd
}
