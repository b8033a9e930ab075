package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/lexihash/internal/domain"
	"github.com/conorfennell/lexihash/internal/gitsource"
	"github.com/conorfennell/lexihash/internal/importer"
	"github.com/conorfennell/lexihash/internal/parser"
	"github.com/conorfennell/lexihash/internal/storage"
)

// ErrInvalidSource is returned when a path cannot be registered as a source.
var ErrInvalidSource = errors.New("invalid source")

// Report summarizes a sync run.
type Report struct {
	Sources       int      `json:"sources"`
	Parsed        int      `json:"parsed"`
	Inserted      int      `json:"inserted"`
	ExamplesAdded int      `json:"examplesAdded"`
	Orphaned      int      `json:"orphaned"`
	Errors        []string `json:"errors"`
}

func (r *Report) add(o Report) {
	r.Sources += o.Sources
	r.Parsed += o.Parsed
	r.Inserted += o.Inserted
	r.ExamplesAdded += o.ExamplesAdded
	r.Orphaned += o.Orphaned
	r.Errors = append(r.Errors, o.Errors...)
}

// Syncer reconciles the cards stored in the database with their sources.
type Syncer struct {
	db       *storage.DB
	reposDir string
	logger   *slog.Logger
}

// New creates a Syncer. Git sources are checked out under reposDir.
func New(db *storage.DB, reposDir string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		db:       db,
		reposDir: reposDir,
		logger:   logger.With(slog.String("component", "sync")),
	}
}

// AddSource registers a local directory or git URL as a card source.
func (s *Syncer) AddSource(ctx context.Context, path string) (storage.Source, error) {
	sourceType := storage.SourceLocal
	if gitsource.IsGitURL(path) {
		sourceType = storage.SourceGit
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return storage.Source{}, fmt.Errorf("%w: failed to resolve %s: %v", ErrInvalidSource, path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return storage.Source{}, fmt.Errorf("%w: failed to add source %s: %v", ErrInvalidSource, path, err)
		}
		if !info.IsDir() {
			return storage.Source{}, fmt.Errorf("%w: %s is not a directory", ErrInvalidSource, path)
		}
		path = abs
	}

	existing, err := s.db.FindSourceByPath(ctx, path)
	switch {
	case err == nil:
		return storage.Source{}, fmt.Errorf("%w: source %s already exists with ID %d", ErrInvalidSource, path, existing.ID)
	case !errors.Is(err, storage.ErrNotFound):
		return storage.Source{}, err
	}

	id, err := s.db.InsertSource(ctx, path, sourceType)
	if err != nil {
		return storage.Source{}, err
	}
	s.logger.Info("source added", "id", id, "type", sourceType, "path", path)
	return storage.Source{ID: id, Path: path, Type: sourceType}, nil
}

// RunSync iterates over all sources and reconciles them.
func (s *Syncer) RunSync(ctx context.Context) (Report, error) {
	s.logger.Info("Starting sync process for all sources...")
	sources, err := s.db.GetAllSources(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to get sources: %w", err)
	}

	var report Report
	if len(sources) == 0 {
		s.logger.Info("No sources configured. Add one with: lexihash add-source <path/or/url.git>")
		return report, nil
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s.logger.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		r, err := s.SyncSource(ctx, source)
		if err != nil {
			s.logger.Error("Error syncing source", "id", source.ID, "path", source.Path, "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", source.Path, err))
			continue
		}
		report.add(r)
	}
	s.logger.Info("Sync process complete.", "inserted", report.Inserted, "examples_added", report.ExamplesAdded)
	return report, nil
}

// SyncSource reconciles a single source.
func (s *Syncer) SyncSource(ctx context.Context, source storage.Source) (Report, error) {
	dir := source.Path
	if source.Type == storage.SourceGit {
		if err := os.MkdirAll(s.reposDir, 0o755); err != nil {
			return Report{}, fmt.Errorf("failed to create repos directory: %w", err)
		}
		localRepoPath, err := gitsource.LocalPath(s.reposDir, source.Path)
		if err != nil {
			return Report{}, fmt.Errorf("error determining local path for git repo: %w", err)
		}
		head, err := gitsource.Sync(ctx, source.Path, localRepoPath)
		if err != nil {
			return Report{}, err
		}
		s.logger.Debug("repository checked out", "url", source.Path, "head", head)
		dir = localRepoPath
	}

	cards, parseErrors, err := parseDir(ctx, dir)
	if err != nil {
		return Report{}, err
	}
	report := s.reconcile(ctx, source, cards)
	report.Sources = 1
	for _, e := range parseErrors {
		report.Errors = append(report.Errors, e.Error())
	}

	if err := s.db.UpdateSourceLastScanned(ctx, source.ID, time.Now()); err != nil {
		s.logger.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	s.logger.Info("reconciliation complete",
		"path", source.Path,
		"parsed_cards", report.Parsed,
		"inserted", report.Inserted,
		"examples_added", report.ExamplesAdded,
		"orphaned", report.Orphaned,
		"errors", len(report.Errors),
	)
	return report, nil
}

// parseDir parses every deck and spreadsheet under dir concurrently. Cards
// are returned in walk order.
func parseDir(ctx context.Context, dir string) ([]domain.Card, []error, error) {
	var files []string
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if isDeck(path) || importer.Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("error walking directory %s: %w", dir, walkErr)
	}

	perFile := make([][]domain.Card, len(files))
	fileErrs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cards, err := parsePath(path)
			if err != nil {
				fileErrs[i] = fmt.Errorf("parsing %s: %w", path, err)
				return nil
			}
			perFile[i] = cards
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var cards []domain.Card
	var errs []error
	for i := range files {
		cards = append(cards, perFile[i]...)
		if fileErrs[i] != nil {
			errs = append(errs, fileErrs[i])
		}
	}
	return cards, errs, nil
}

func isDeck(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}

func parsePath(path string) ([]domain.Card, error) {
	if isDeck(path) {
		return parser.ParseFile(path)
	}
	result, err := importer.Import(importer.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for i := range result.Cards {
		result.Cards[i].Source = name
	}
	return result.Cards, nil
}

// reconcile merges the parsed cards into the store and counts the source's
// cards that no longer appear in it. Those are only reported: deleting a
// card is left to the user.
func (s *Syncer) reconcile(ctx context.Context, source storage.Source, cards []domain.Card) Report {
	report := s.merge(ctx, cards, source.ID)

	found := make(map[string]bool, len(cards))
	for _, card := range cards {
		found[wordKey(card)] = true
	}
	stored, err := s.db.CardsBySource(ctx, source.ID)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	for _, c := range stored {
		if !found[wordKey(c)] {
			s.logger.Info("Orphaned card kept", "id", c.ID, "word", c.Word)
			report.Orphaned++
		}
	}
	return report
}

// Import merges cards that do not belong to any source, such as a one-off
// spreadsheet import.
func (s *Syncer) Import(ctx context.Context, cards []domain.Card) Report {
	report := s.merge(ctx, cards, 0)
	s.logger.Info("import complete", "inserted", report.Inserted, "examples_added", report.ExamplesAdded, "errors", len(report.Errors))
	return report
}

// merge stores new words and appends unseen examples to known ones.
func (s *Syncer) merge(ctx context.Context, cards []domain.Card, sourceID int64) Report {
	report := Report{Parsed: len(cards)}
	for _, card := range cards {
		existing, err := s.db.FindCardByWord(ctx, card.Word, card.SourceLanguage)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			if _, err := s.db.InsertCard(ctx, card, sourceID); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("db insert for %q: %v", card.Word, err))
				continue
			}
			s.logger.Debug("New card found, inserting...", "word", card.Word)
			report.Inserted++
		case err != nil:
			report.Errors = append(report.Errors, fmt.Sprintf("db check for %q: %v", card.Word, err))
		default:
			added, err := s.db.AppendExamples(ctx, existing.ID, card.Context)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("db append for %q: %v", card.Word, err))
				continue
			}
			report.ExamplesAdded += added
		}
	}
	return report
}

func wordKey(c domain.Card) string {
	return c.SourceLanguage + "\x00" + c.Word
}
