package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andromedus24/ledgerstore/internal/types"
)

func TestRollupEngine_PerformDailyRollup_ComputesSuccessRate(t *testing.T) {
	mgr := newTestManager(t)
	jobs := NewJobRepository(mgr, nil, NewEventRepository(mgr), nil)
	usageRepo := NewUsageRepository(mgr)
	events := NewEventRepository(mgr)
	rollup := NewRollupEngine(mgr, usageRepo, events)
	ctx := context.Background()

	provider := "openai"
	model := "gpt-4o"

	statuses := []types.JobStatus{
		types.JobStatusCompleted,
		types.JobStatusCompleted,
		types.JobStatusCompleted,
		types.JobStatusCompleted,
		types.JobStatusFailed,
	}
	for _, status := range statuses {
		job, err := jobs.CreateJob(ctx, types.CreateJobRequest{
			Type:     types.JobTypeChat,
			Title:    "job",
			Provider: &provider,
			Model:    &model,
		})
		require.NoError(t, err)
		s := status
		_, err = jobs.UpdateJob(ctx, job.ID, types.UpdateJobRequest{Status: &s})
		require.NoError(t, err)
	}

	today := time.Now().UTC()
	require.NoError(t, rollup.PerformDailyRollup(ctx, today))

	stats, err := usageRepo.GetUsageStats(ctx, types.UsageFilter{Provider: &provider, Model: &model})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(5), stats[0].TotalJobs)
	assert.InDelta(t, 80.0, stats[0].SuccessRate, 0.001)
}

func TestRollupEngine_PerformDailyRollup_IsIdempotent(t *testing.T) {
	mgr := newTestManager(t)
	jobs := NewJobRepository(mgr, nil, NewEventRepository(mgr), nil)
	usageRepo := NewUsageRepository(mgr)
	events := NewEventRepository(mgr)
	rollup := NewRollupEngine(mgr, usageRepo, events)
	ctx := context.Background()

	provider := "anthropic"
	model := "claude-3-opus"
	job, err := jobs.CreateJob(ctx, types.CreateJobRequest{
		Type: types.JobTypeChat, Title: "job", Provider: &provider, Model: &model,
	})
	require.NoError(t, err)
	completed := types.JobStatusCompleted
	_, err = jobs.UpdateJob(ctx, job.ID, types.UpdateJobRequest{Status: &completed})
	require.NoError(t, err)

	today := time.Now().UTC()
	require.NoError(t, rollup.PerformDailyRollup(ctx, today))
	require.NoError(t, rollup.PerformDailyRollup(ctx, today))

	stats, err := usageRepo.GetUsageStats(ctx, types.UsageFilter{Provider: &provider, Model: &model})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].TotalJobs)
}

func TestRollupEngine_PerformWeeklyRollup_NoJobsWritesNoRows(t *testing.T) {
	mgr := newTestManager(t)
	usageRepo := NewUsageRepository(mgr)
	events := NewEventRepository(mgr)
	rollup := NewRollupEngine(mgr, usageRepo, events)
	ctx := context.Background()

	weekStart := time.Now().UTC().AddDate(0, 0, -6)
	require.NoError(t, rollup.PerformWeeklyRollup(ctx, weekStart))
	// No jobs in range: no rows should be written, and no error either.
	stats, err := usageRepo.GetUsageStats(ctx, types.UsageFilter{})
	require.NoError(t, err)
	assert.Empty(t, stats)
}
