package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"QuantChannel/internal/notifier"
	"QuantChannel/internal/scanner"
)

// Scheduler drives repeated batch scans on a cron schedule (watch mode).
type Scheduler struct {
	Cron     *cron.Cron
	Scanner  *scanner.Scanner
	Notifier scanner.Notifier
	Ctx      context.Context

	running atomic.Bool
}

// NewScheduler creates a Scheduler. The notifier is optional; when set,
// every scheduled run ends with a batch summary message.
func NewScheduler(ctx context.Context, s *scanner.Scanner, n scanner.Notifier) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Scanner:  s,
		Notifier: n,
		Ctx:      ctx,
	}
}

// Register adds the scan job on the given 6-field cron spec.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes one scan immediately (for manual trigger / run-on-start).
func (s *Scheduler) RunNow() {
	s.scanTask()
}

func (s *Scheduler) scanTask() {
	// A slow batch must not stack on top of itself.
	if !s.running.CompareAndSwap(false, true) {
		log.Warn().Msg("previous scan still running, skipping this tick")
		return
	}
	defer s.running.Store(false)

	summary, err := s.Scanner.Run(s.Ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduled scan aborted")
		return
	}
	if s.Notifier != nil {
		text := notifier.FormatBatchSummary(summary.RunID, summary.Succeeded, summary.Failures, summary.Elapsed)
		if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
			log.Error().Err(err).Msg("send batch summary failed")
		}
	}
}
