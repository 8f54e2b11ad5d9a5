// Package scheduler runs SwiftSend's background sweeps on cron expressions,
// such as the stale pending-delivery sweep and the link-code cleanup.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler owns a cron runner for named background jobs.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a scheduler using the standard 5-field
// cron format. Panics inside jobs are recovered and logged.
func NewScheduler() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob registers task under name to run on the given cron expression.
// Each run is logged with its duration.
func (s *Scheduler) AddJob(name, expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, func() {
		start := time.Now()
		task()
		slog.Debug("Scheduler job finished", "job", name, "duration", time.Since(start))
	})
	return err
}

// Stop stops the scheduler and waits for any running job to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
