package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/conorfennell/lexihash/internal/config"
	"github.com/conorfennell/lexihash/internal/logger"
	"github.com/conorfennell/lexihash/internal/review"
	"github.com/conorfennell/lexihash/internal/rotation"
	"github.com/conorfennell/lexihash/internal/storage"
	"github.com/conorfennell/lexihash/internal/sync"
)

// Deps holds the dependencies shared by commands.
type Deps struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *storage.DB
}

// withDeps loads config, sets up logging and opens the database, then calls
// fn. The database is closed when fn returns.
func withDeps(cmd *cobra.Command, fn func(*Deps) error) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}

	db, err := storage.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	log.Debug("database opened", "path", cfg.DB)

	return fn(&Deps{Config: cfg, Logger: log, DB: db})
}

// Reviews builds the review service. A zero seed draws examples from the
// global random source.
func (d *Deps) Reviews() *review.Service {
	engine := rotation.New(nil)
	if d.Config.Seed != 0 {
		engine = rotation.NewSeeded(d.Config.Seed)
	}
	return review.NewService(d.DB, engine, d.Logger)
}

// Syncer builds the source syncer.
func (d *Deps) Syncer() *sync.Syncer {
	return sync.New(d.DB, d.Config.ReposDir, d.Logger)
}
