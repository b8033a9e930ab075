package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/lexihash/internal/reminder"
	"github.com/conorfennell/lexihash/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var syncFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Serves the review API and, unless disabled, logs a reminder whenever cards are due.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(d *Deps) error {
				return runServe(cmd.Context(), d, syncFirst)
			})
		},
	}

	cmd.Flags().BoolVar(&syncFirst, "sync", false, "Sync all sources before serving")

	return cmd
}

func runServe(ctx context.Context, d *Deps, syncFirst bool) error {
	syncer := d.Syncer()
	if syncFirst {
		if _, err := syncer.RunSync(ctx); err != nil {
			return fmt.Errorf("initial sync: %w", err)
		}
	}

	reviews := d.Reviews()

	if d.Config.ReminderInterval > 0 {
		reminders := reminder.New(reviews, reminder.LogNotifier{Logger: d.Logger}, d.Config.ReminderInterval, d.Logger)
		if err := reminders.Start(ctx); err != nil {
			return err
		}
		defer reminders.Stop()
	}

	srv := &http.Server{
		Addr:              d.Config.Listen,
		Handler:           web.NewServer(d.DB, reviews, syncer, d.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.Logger.Info("server listening", "addr", d.Config.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		d.Logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
