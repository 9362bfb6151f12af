// Package scheduler runs the refresh job on a cron schedule for operators
// who keep the tool running instead of invoking it per batch.
package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/wonny/volsync/pkg/logger"
)

// Scheduler wraps a cron runner around a refresh job.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

// New creates a scheduler.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: log,
	}
}

// Schedule registers job under a standard 5-field cron expression.
func (s *Scheduler) Schedule(spec string, job func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.WithField("schedule", spec).Info("Scheduled refresh starting")
		job()
	})
	if err != nil {
		return fmt.Errorf("register refresh job: %w", err)
	}
	return nil
}

// Run starts the scheduler and blocks until Stop.
func (s *Scheduler) Run() {
	s.logger.Info("Scheduler started")
	s.cron.Run()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
