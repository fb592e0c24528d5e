package usage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andromedus24/ledgerstore/internal/types"
)

type fakeRateLookup struct {
	rate *types.CostRate
	err  error
}

func (f *fakeRateLookup) GetCurrentCostRate(ctx context.Context, provider, model string) (*types.CostRate, error) {
	return f.rate, f.err
}

type fakeUsageUpserter struct {
	rows []types.UsageStats
}

func (f *fakeUsageUpserter) UpsertUsageStats(ctx context.Context, row types.UsageStats) error {
	f.rows = append(f.rows, row)
	return nil
}

func newJob(status types.JobStatus, provider, model string, input, output int64) *types.Job {
	p, m := provider, model
	return &types.Job{
		ID:           "job-1",
		Type:         types.JobTypeChat,
		Status:       status,
		Provider:     &p,
		Model:        &m,
		InputTokens:  input,
		OutputTokens: output,
	}
}

func TestComputeCost(t *testing.T) {
	cost := ComputeCost(1000, 500, 0.0025, 0.01)
	assert.InDelta(t, 0.0075, cost, 1e-9)
}

func TestTracker_CaptureJobUsage_SkipsNonTerminalStatus(t *testing.T) {
	rates := &fakeRateLookup{rate: &types.CostRate{InputTokenRate: 0.01, OutputTokenRate: 0.02, Currency: "USD"}}
	usageStore := &fakeUsageUpserter{}
	tr := New(rates, usageStore)

	job := newJob(types.JobStatusRunning, "openai", "gpt-4o", 100, 100)
	cost, ok, err := tr.CaptureJobUsage(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, cost)
	assert.Empty(t, usageStore.rows)
}

func TestTracker_CaptureJobUsage_RequiresBothTokenCountsPositive(t *testing.T) {
	rates := &fakeRateLookup{rate: &types.CostRate{InputTokenRate: 0.01, OutputTokenRate: 0.02, Currency: "USD"}}

	cases := []struct {
		name   string
		input  int64
		output int64
	}{
		{"zero input", 0, 100},
		{"zero output", 100, 0},
		{"both zero", 0, 0},
		{"negative input", -5, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			usageStore := &fakeUsageUpserter{}
			tr := New(rates, usageStore)
			job := newJob(types.JobStatusCompleted, "openai", "gpt-4o", tc.input, tc.output)
			_, ok, err := tr.CaptureJobUsage(context.Background(), job)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, usageStore.rows)
		})
	}
}

func TestTracker_CaptureJobUsage_ComputesCostWhenBothTokensPositive(t *testing.T) {
	rates := &fakeRateLookup{rate: &types.CostRate{InputTokenRate: 0.0025, OutputTokenRate: 0.01, Currency: "USD"}}
	usageStore := &fakeUsageUpserter{}
	tr := New(rates, usageStore)

	job := newJob(types.JobStatusCompleted, "openai", "gpt-4o", 1000, 500)
	cost, ok, err := tr.CaptureJobUsage(context.Background(), job)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.0075, cost, 1e-9)
	require.Len(t, usageStore.rows, 1)
	assert.Equal(t, float64(100), usageStore.rows[0].SuccessRate)
}

func TestTracker_CaptureJobUsage_FailedJobHasZeroSuccessRate(t *testing.T) {
	rates := &fakeRateLookup{rate: &types.CostRate{InputTokenRate: 0.0025, OutputTokenRate: 0.01, Currency: "USD"}}
	usageStore := &fakeUsageUpserter{}
	tr := New(rates, usageStore)

	job := newJob(types.JobStatusFailed, "openai", "gpt-4o", 1000, 500)
	_, ok, err := tr.CaptureJobUsage(context.Background(), job)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, usageStore.rows, 1)
	assert.Equal(t, float64(0), usageStore.rows[0].SuccessRate)
}

func TestTracker_CaptureJobUsage_SkipsWhenProviderOrModelMissing(t *testing.T) {
	rates := &fakeRateLookup{rate: &types.CostRate{InputTokenRate: 0.01, OutputTokenRate: 0.02, Currency: "USD"}}
	usageStore := &fakeUsageUpserter{}
	tr := New(rates, usageStore)

	job := &types.Job{ID: "job-2", Type: types.JobTypeChat, Status: types.JobStatusCompleted, InputTokens: 100, OutputTokens: 100}
	_, ok, err := tr.CaptureJobUsage(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, usageStore.rows)
}
