package publish

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler drives Cycle.Run on a fixed interval, replacing the
// original's apscheduler.BlockingScheduler with robfig/cron. Runs are
// non-overlapping: if a cycle is still running when the next tick
// fires, that tick is dropped, never deferred or run late.
// misfireGraceTime only decides how the drop is logged: a warning when
// the time since the previous tick exceeds it, a debug line otherwise.
type Scheduler struct {
	cron             *cron.Cron
	cycle            *Cycle
	intervalSeconds  int
	misfireGrace     time.Duration
	logger           zerolog.Logger
	running          atomic.Bool
	lastScheduledAt  atomic.Int64
}

// NewScheduler builds a Scheduler that runs cycle every
// intervalSeconds; a dropped tick more than misfireGrace after the
// previous tick is logged as a hard miss rather than a soft one.
func NewScheduler(cycle *Cycle, intervalSeconds int, misfireGrace time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithSeconds()),
		cycle:           cycle,
		intervalSeconds: intervalSeconds,
		misfireGrace:    misfireGrace,
		logger:          logger,
	}
}

// Start schedules the recurring job and begins running it in the
// background. Call Stop to end it.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %ds", s.intervalSeconds)
	_, err := s.cron.AddFunc(spec, func() { s.tick(ctx) })
	if err != nil {
		return fmt.Errorf("schedule publish cycle: %w", err)
	}
	s.cron.Start()
	s.logger.Info().Int("interval_seconds", s.intervalSeconds).Msg("🕐 publish scheduler started")
	return nil
}

// Stop halts the scheduler and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	scheduledAt := s.lastScheduledAt.Swap(now.Unix())
	if !s.running.CompareAndSwap(false, true) {
		if scheduledAt > 0 {
			lateness := now.Sub(time.Unix(scheduledAt, 0))
			if lateness > s.misfireGrace {
				s.logger.Warn().Dur("lateness", lateness).Msg("⏱️ dropped tick exceeded misfire grace time")
			} else {
				s.logger.Debug().Msg("⏭️ previous cycle still running, dropping tick")
			}
		}
		return
	}
	defer s.running.Store(false)

	if err := s.cycle.Run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("❌ publish cycle aborted")
	}
}
