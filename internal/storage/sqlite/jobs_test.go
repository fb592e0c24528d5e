package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andromedus24/ledgerstore/internal/types"
)

func TestJobRepository_CreateAndGet(t *testing.T) {
	mgr := newTestManager(t)
	events := NewEventRepository(mgr)
	jobs := NewJobRepository(mgr, nil, events, nil)

	ctx := context.Background()
	provider := "openai"
	model := "gpt-4o"

	created, err := jobs.CreateJob(ctx, types.CreateJobRequest{
		Type:     types.JobTypeChat,
		Title:    "summarize meeting notes",
		Provider: &provider,
		Model:    &model,
		Params:   "{}",
		Metadata: "{}",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, types.JobStatusPending, created.Status)

	fetched, err := jobs.GetJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "summarize meeting notes", fetched.Title)

	events_, err := events.GetEventsByJob(ctx, created.ID, 10)
	require.NoError(t, err)
	require.Len(t, events_, 1)
	assert.Equal(t, types.EventTypeCreated, events_[0].EventType)
}

func TestJobRepository_GetJob_NotFound(t *testing.T) {
	mgr := newTestManager(t)
	jobs := NewJobRepository(mgr, nil, NewEventRepository(mgr), nil)

	_, err := jobs.GetJob(context.Background(), "does-not-exist")
	require.Error(t, err)
}

func TestJobRepository_UpdateJob_RequiresCompletedAtOnTerminalStatus(t *testing.T) {
	mgr := newTestManager(t)
	events := NewEventRepository(mgr)
	jobs := NewJobRepository(mgr, nil, events, nil)
	ctx := context.Background()

	job, err := jobs.CreateJob(ctx, types.CreateJobRequest{
		Type:  types.JobTypeAutomation,
		Title: "run daily backup script",
	})
	require.NoError(t, err)

	status := types.JobStatusCompleted
	updated, err := jobs.UpdateJob(ctx, job.ID, types.UpdateJobRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)
}

func TestJobRepository_UpdateJob_CapturesUsageOnCompletion(t *testing.T) {
	mgr := newTestManager(t)
	costRates := NewCostRateRepository(mgr)
	usageRepo := NewUsageRepository(mgr)
	events := NewEventRepository(mgr)

	ctx := context.Background()

	rate, err := costRates.GetCurrentCostRate(ctx, "openai", "gpt-4o")
	require.NoError(t, err)
	require.NotNil(t, rate)

	tracker := testTracker{rates: costRates, usage: usageRepo}
	jobs := NewJobRepository(mgr, tracker, events, nil)

	provider := "openai"
	model := "gpt-4o"
	job, err := jobs.CreateJob(ctx, types.CreateJobRequest{
		Type:     types.JobTypeChat,
		Title:    "chat completion",
		Provider: &provider,
		Model:    &model,
	})
	require.NoError(t, err)

	status := types.JobStatusCompleted
	inputTokens := int64(1000)
	outputTokens := int64(500)
	updated, err := jobs.UpdateJob(ctx, job.ID, types.UpdateJobRequest{
		Status:       &status,
		InputTokens:  &inputTokens,
		OutputTokens: &outputTokens,
	})
	require.NoError(t, err)

	expectedCost := rate.InputTokenRate + 0.5*rate.OutputTokenRate
	assert.InDelta(t, expectedCost, updated.TotalCost, 0.0001)
}

// testTracker adapts cost_rates/usage repositories to jobUsageTracker for
// tests without importing internal/usage (avoiding an import cycle in the
// test binary between internal/usage and internal/storage/sqlite).
type testTracker struct {
	rates *CostRateRepository
	usage *UsageRepository
}

func (tt testTracker) CaptureJobUsage(ctx context.Context, job *types.Job) (float64, bool, error) {
	if job.Status != types.JobStatusCompleted && job.Status != types.JobStatusFailed {
		return 0, false, nil
	}
	if job.Provider == nil || job.Model == nil || job.InputTokens <= 0 || job.OutputTokens <= 0 {
		return 0, false, nil
	}
	rate, err := tt.rates.GetCurrentCostRate(ctx, *job.Provider, *job.Model)
	if err != nil {
		return 0, false, err
	}
	cost := float64(job.InputTokens)/1000*rate.InputTokenRate + float64(job.OutputTokens)/1000*rate.OutputTokenRate
	return cost, true, nil
}

func TestJobRepository_DeleteJob_SoftCancelsInsteadOfRemoving(t *testing.T) {
	mgr := newTestManager(t)
	events := NewEventRepository(mgr)
	jobs := NewJobRepository(mgr, nil, events, nil)
	ctx := context.Background()

	job, err := jobs.CreateJob(ctx, types.CreateJobRequest{Type: types.JobTypeChat, Title: "to cancel"})
	require.NoError(t, err)

	require.NoError(t, jobs.DeleteJob(ctx, job.ID, false))

	fetched, err := jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusCancelled, fetched.Status)
	require.NotNil(t, fetched.CompletedAt)
}

func TestJobRepository_DeleteJob_SoftDeletePreservesExistingCompletedAt(t *testing.T) {
	mgr := newTestManager(t)
	events := NewEventRepository(mgr)
	jobs := NewJobRepository(mgr, nil, events, nil)
	ctx := context.Background()

	job, err := jobs.CreateJob(ctx, types.CreateJobRequest{Type: types.JobTypeChat, Title: "already done"})
	require.NoError(t, err)
	completed := types.JobStatusCompleted
	updated, err := jobs.UpdateJob(ctx, job.ID, types.UpdateJobRequest{Status: &completed})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
	firstCompletedAt := *updated.CompletedAt

	require.NoError(t, jobs.DeleteJob(ctx, job.ID, false))

	fetched, err := jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusCancelled, fetched.Status)
	require.NotNil(t, fetched.CompletedAt)
	assert.True(t, firstCompletedAt.Equal(*fetched.CompletedAt))
}

func TestJobRepository_DeleteJob_HardRemovesRow(t *testing.T) {
	mgr := newTestManager(t)
	events := NewEventRepository(mgr)
	jobs := NewJobRepository(mgr, nil, events, nil)
	ctx := context.Background()

	job, err := jobs.CreateJob(ctx, types.CreateJobRequest{Type: types.JobTypeChat, Title: "to purge"})
	require.NoError(t, err)

	require.NoError(t, jobs.DeleteJob(ctx, job.ID, true))

	_, err = jobs.GetJob(ctx, job.ID)
	assert.Error(t, err)
}

func TestJobRepository_DeleteJob_NotFound(t *testing.T) {
	mgr := newTestManager(t)
	jobs := NewJobRepository(mgr, nil, NewEventRepository(mgr), nil)

	assert.Error(t, jobs.DeleteJob(context.Background(), "does-not-exist", false))
	assert.Error(t, jobs.DeleteJob(context.Background(), "does-not-exist", true))
}

func TestJobRepository_QueryJobs_FiltersByStatus(t *testing.T) {
	mgr := newTestManager(t)
	events := NewEventRepository(mgr)
	jobs := NewJobRepository(mgr, nil, events, nil)
	ctx := context.Background()

	_, err := jobs.CreateJob(ctx, types.CreateJobRequest{Type: types.JobTypeChat, Title: "a"})
	require.NoError(t, err)
	b, err := jobs.CreateJob(ctx, types.CreateJobRequest{Type: types.JobTypeChat, Title: "b"})
	require.NoError(t, err)

	failed := types.JobStatusFailed
	_, err = jobs.UpdateJob(ctx, b.ID, types.UpdateJobRequest{Status: &failed})
	require.NoError(t, err)

	status := types.JobStatusFailed
	page, err := jobs.QueryJobs(ctx, types.JobFilter{Status: &status}, types.DefaultJobSort, types.Pagination{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, b.ID, page.Items[0].ID)
}
