// Package watch runs scheduled presence sweeps in the background. Each
// sweep drives the same pipeline as an on-demand check but only records
// metrics and the scan log; nothing is reported to users.
package watch

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/officewatch/officewatch/internal/logging"
	"github.com/officewatch/officewatch/internal/presence"
)

// Checker runs one presence check. Satisfied by *presence.Service.
type Checker interface {
	Check(ctx context.Context, trigger string) (*presence.Result, error)
}

// Scheduler triggers presence sweeps on a cron schedule. A sweep that fires
// while the previous one is still running is skipped; sweeps never overlap.
type Scheduler struct {
	checker  Checker
	schedule string
	logger   *logging.Logger

	cron    *cron.Cron
	running atomic.Bool
}

// NewScheduler creates a sweep scheduler. schedule uses six-field cron
// syntax with seconds.
func NewScheduler(checker Checker, schedule string, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		checker:  checker,
		schedule: schedule,
		logger:   logger.WithComponent("watch"),
	}
}

// Start registers the cron entry and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithSeconds())

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Watch scheduler started", "schedule", s.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running sweep's cron entry to
// return.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.logger.Info("Watch scheduler stopped")
}

// runSweep executes one scheduled sweep with the overlap guard.
func (s *Scheduler) runSweep(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Previous sweep still running, skipping this one")
		return
	}
	defer s.running.Store(false)

	result, err := s.checker.Check(ctx, "watch")
	if err != nil {
		s.logger.Error("Scheduled sweep failed", "error", err)
		return
	}

	s.logger.Info("Scheduled sweep complete",
		"devices", len(result.Observations),
		"present", len(result.PresentUsers))
}
