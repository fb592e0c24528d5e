// Package scheduler drives the wall-clock rollup worker: a daily
// aggregation at 02:00 local (configurable), a weekly aggregation every
// Sunday, and retention pruning, with a manual-trigger escape hatch for
// each. Grounded on spec.md Design Note's callback/async translation: "a
// single scheduled task driven by a monotonic timer plus wall-clock
// target... recomputed after each fire", the same primitive the wider
// example pack's daemon/scheduler code reaches for over raw
// goroutines+sync.WaitGroup.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RollupRunner is the set of operations the Scheduler drives. Implemented
// by internal/ledger.Store so this package never imports the storage
// layer directly.
type RollupRunner interface {
	PerformDailyRollup(ctx context.Context, date time.Time) error
	PerformWeeklyRollup(ctx context.Context, weekStart time.Time) error
	CleanupOldStats(ctx context.Context) error
}

// Options configures a Scheduler.
type Options struct {
	// RollupHourLocal is the local hour (0-23) the daily rollup fires at.
	RollupHourLocal int
	// EnableWeeklyRollups gates the Sunday weekly aggregation.
	EnableWeeklyRollups bool
	// Logger receives per-run diagnostics; defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.RollupHourLocal < 0 || o.RollupHourLocal > 23 {
		o.RollupHourLocal = 2
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Scheduler runs RollupRunner's operations on a recomputed wall-clock
// timer. Start/Stop are idempotent and safe to call from a Facade's
// initialize/close.
type Scheduler struct {
	runner RollupRunner
	opts   Options

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New constructs a Scheduler bound to runner.
func New(runner RollupRunner, opts Options) *Scheduler {
	return &Scheduler{runner: runner, opts: opts.withDefaults()}
}

// Start launches the background goroutine if it is not already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop(ctx, s.stopCh, s.doneCh)
}

// Stop signals the background goroutine to exit and waits for it to
// finish. Calling Stop when the scheduler is not running is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stopCh := s.stopCh
	doneCh := s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	for {
		target := nextRollupTime(time.Now(), s.opts.RollupHourLocal)
		timer := time.NewTimer(time.Until(target))

		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	yesterday := time.Now().AddDate(0, 0, -1)

	if err := s.runner.PerformDailyRollup(ctx, yesterday); err != nil {
		s.opts.Logger.Error("daily rollup failed", "date", yesterday.Format("2006-01-02"), "error", err)
	}

	if s.opts.EnableWeeklyRollups && yesterday.Weekday() == time.Sunday {
		weekStart := yesterday.AddDate(0, 0, -7)
		if err := s.runner.PerformWeeklyRollup(ctx, weekStart); err != nil {
			s.opts.Logger.Error("weekly rollup failed", "week_start", weekStart.Format("2006-01-02"), "error", err)
		}
	}

	if err := s.runner.CleanupOldStats(ctx); err != nil {
		s.opts.Logger.Error("usage stats cleanup failed", "error", err)
	}
}

// nextRollupTime returns the next wall-clock instant at RollupHourLocal,
// strictly after from: today at that hour if from hasn't reached it yet,
// tomorrow at that hour otherwise.
func nextRollupTime(from time.Time, hour int) time.Time {
	candidate := time.Date(from.Year(), from.Month(), from.Day(), hour, 0, 0, 0, from.Location())
	if !candidate.After(from) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// TriggerDailyRollup runs PerformDailyRollup for date immediately,
// bypassing the timer. Used by the CLI's rollup-trigger subcommand and by
// callers replaying a missed fire (the store does not replay missed
// fires automatically, e.g. because the host was asleep).
func (s *Scheduler) TriggerDailyRollup(ctx context.Context, date time.Time) error {
	return s.runner.PerformDailyRollup(ctx, date)
}

// TriggerWeeklyRollup runs PerformWeeklyRollup for the week starting at
// weekStart immediately, bypassing the timer.
func (s *Scheduler) TriggerWeeklyRollup(ctx context.Context, weekStart time.Time) error {
	return s.runner.PerformWeeklyRollup(ctx, weekStart)
}
