package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu             sync.Mutex
	dailyCalls     []time.Time
	weeklyCalls    []time.Time
	cleanupCalls   int
	dailyErr       error
	weeklyErr      error
	cleanupErr     error
}

func (f *fakeRunner) PerformDailyRollup(ctx context.Context, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dailyCalls = append(f.dailyCalls, date)
	return f.dailyErr
}

func (f *fakeRunner) PerformWeeklyRollup(ctx context.Context, weekStart time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weeklyCalls = append(f.weeklyCalls, weekStart)
	return f.weeklyErr
}

func (f *fakeRunner) CleanupOldStats(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanupCalls++
	return f.cleanupErr
}

func TestNextRollupTime_LaterToday(t *testing.T) {
	from := time.Date(2026, 3, 5, 1, 0, 0, 0, time.UTC)
	got := nextRollupTime(from, 2)
	want := time.Date(2026, 3, 5, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, want, got)
}

func TestNextRollupTime_TomorrowWhenHourPassed(t *testing.T) {
	from := time.Date(2026, 3, 5, 5, 0, 0, 0, time.UTC)
	got := nextRollupTime(from, 2)
	want := time.Date(2026, 3, 6, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, want, got)
}

func TestNextRollupTime_ExactlyOnHourRollsToTomorrow(t *testing.T) {
	from := time.Date(2026, 3, 5, 2, 0, 0, 0, time.UTC)
	got := nextRollupTime(from, 2)
	want := time.Date(2026, 3, 6, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, want, got)
}

func TestScheduler_StartStop_IsIdempotent(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, Options{RollupHourLocal: 23})

	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}

func TestScheduler_TriggerDailyRollup_BypassesTimer(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, Options{})

	date := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.TriggerDailyRollup(context.Background(), date))

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.dailyCalls, 1)
	assert.Equal(t, date, runner.dailyCalls[0])
}

func TestScheduler_TriggerWeeklyRollup_BypassesTimer(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, Options{})

	weekStart := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.TriggerWeeklyRollup(context.Background(), weekStart))

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.weeklyCalls, 1)
	assert.Equal(t, weekStart, runner.weeklyCalls[0])
}

func TestScheduler_Fire_RunsDailyAndCleanupAlways(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, Options{EnableWeeklyRollups: false})

	s.fire(context.Background())

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Len(t, runner.dailyCalls, 1)
	assert.Equal(t, 1, runner.cleanupCalls)
	assert.Empty(t, runner.weeklyCalls)
}
