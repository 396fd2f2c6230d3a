package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically purges expired entries from backends that do not
// expire keys on their own. It runs Purge on a cron schedule.
type Sweeper struct {
	purger   Purger
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewSweeper creates a sweeper for purger.
//
// Accepted schedules are standard five-field cron expressions and the
// descriptors understood by robfig/cron, for example "@every 1m".
func NewSweeper(purger Purger, schedule string, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		purger:   purger,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "status.sweeper"),
	}
}

// Start schedules purging until ctx is cancelled or Stop is called.
// An empty schedule disables the sweeper.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping sweeper")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("status sweeper started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Sweep runs a single purge cycle.
func (s *Sweeper) Sweep(ctx context.Context) {
	removed, err := s.purger.Purge(ctx)
	if err != nil {
		s.logger.Error("status sweep failed", "error", err)
		return
	}

	if removed > 0 {
		s.logger.Info("status sweep completed", "removed", removed)
	} else {
		s.logger.Debug("status sweep completed, nothing expired")
	}
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("status sweeper stopped")
	}
}

// IsRunning reports whether the sweeper is scheduled.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep, or nil when not scheduled.
func (s *Sweeper) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
