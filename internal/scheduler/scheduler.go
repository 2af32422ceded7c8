// Package scheduler runs the daily streak close.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// DayCloser applies the streak tick to every user active since the given time.
type DayCloser interface {
	CloseDay(ctx context.Context, since time.Time) (int, error)
}

// Scheduler owns the gocron scheduler and the jobs registered on it.
type Scheduler struct {
	cron    *gocron.Scheduler
	closer  DayCloser
	closeAt string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// New builds a scheduler that closes the day at closeAt ("HH:MM") in loc.
func New(closer DayCloser, closeAt string, loc *time.Location, logger *slog.Logger) *Scheduler {
	return NewWithClock(closer, closeAt, loc, logger, time.Now)
}

func NewWithClock(closer DayCloser, closeAt string, loc *time.Location, logger *slog.Logger, now func() time.Time) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    gocron.NewScheduler(loc),
		closer:  closer,
		closeAt: closeAt,
		timeout: 5 * time.Minute,
		logger:  logger,
		now:     now,
	}
}

// Start registers the jobs and runs them in the background.
func (s *Scheduler) Start() error {
	s.cron.SingletonModeAll()
	if _, err := s.cron.Every(1).Day().At(s.closeAt).Do(s.closeDay); err != nil {
		return fmt.Errorf("schedule day close at %q: %w", s.closeAt, err)
	}
	s.cron.StartAsync()
	s.logger.Info("scheduler started", "close_at", s.closeAt)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce closes the day immediately. Users active within the last 24 hours
// keep their streak.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	since := s.now().Add(-24 * time.Hour)
	updated, err := s.closer.CloseDay(ctx, since)
	if err != nil {
		s.logger.Error("day close finished with errors", "updated", updated, "err", err)
		return updated, err
	}
	s.logger.Info("day closed", "updated", updated, "since", since)
	return updated, nil
}

func (s *Scheduler) closeDay() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}
