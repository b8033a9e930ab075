// Package reminder periodically reports how many cards are waiting for
// review.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/conorfennell/lexihash/internal/domain"
)

// DueSource returns the cards due at a given moment.
type DueSource interface {
	Due(ctx context.Context, now time.Time) ([]domain.Card, error)
}

// Notifier delivers a reminder about count due cards.
type Notifier interface {
	NotifyDue(ctx context.Context, count int) error
}

// LogNotifier writes reminders to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// NotifyDue implements Notifier.
func (n LogNotifier) NotifyDue(ctx context.Context, count int) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "cards are due for review", "count", count)
	return nil
}

// Scheduler runs the due check on a fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	source    DueSource
	notifier  Notifier
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Scheduler. It does nothing until Start is called.
func New(source DueSource, notifier Notifier, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		source:    source,
		notifier:  notifier,
		interval:  interval,
		logger:    logger.With(slog.String("component", "reminder")),
		now:       time.Now,
	}
}

// Start schedules the check and runs it in the background. The first check
// runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("reminder interval must be positive")
	}
	_, err := s.scheduler.Every(s.interval).Do(func() {
		if _, err := s.Check(ctx); err != nil {
			s.logger.Error("reminder check failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminder: %w", err)
	}
	s.scheduler.StartAsync()
	s.logger.Info("reminders scheduled", "interval", s.interval)
	return nil
}

// Stop terminates the scheduled check.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Check counts the due cards and notifies when there is at least one.
func (s *Scheduler) Check(ctx context.Context) (int, error) {
	cards, err := s.source.Due(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to select due cards: %w", err)
	}
	if len(cards) == 0 {
		s.logger.Debug("no cards due")
		return 0, nil
	}
	if err := s.notifier.NotifyDue(ctx, len(cards)); err != nil {
		return len(cards), fmt.Errorf("failed to send reminder: %w", err)
	}
	return len(cards), nil
}
