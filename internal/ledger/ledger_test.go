package ledger

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andromedus24/ledgerstore/internal/config"
	"github.com/andromedus24/ledgerstore/internal/storage/sqlite"
	"github.com/andromedus24/ledgerstore/internal/types"
)

func newTestConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		DatabasePath:          filepath.Join(dir, "ledger.db"),
		ArtifactStoragePath:   filepath.Join(dir, "artifacts"),
		DatabaseBusyTimeoutMS: 5000,
		DatabaseCacheSizeKB:   2000,
		LogLevel:              "error",
		EnableRollupScheduler: false,
		RollupHourLocal:       2,
		UsageCapture: config.UsageCaptureConfig{
			EnableCostCalculation: true,
			RetentionDays:         90,
		},
		Storage: config.StorageLimits{
			DefaultArtifactRetentionDays: 90,
		},
	}
}

func TestOpen_ThenClose(t *testing.T) {
	cfg := newTestConfig(t)
	store, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestStore_GuardRejectsOperationsAfterClose(t *testing.T) {
	cfg := newTestConfig(t)
	store, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Jobs.CreateJob(context.Background(), types.CreateJobRequest{Type: types.JobTypeChat, Title: "after close"})
	assert.Error(t, err)

	err = store.Vacuum(context.Background())
	assert.Error(t, err)
}

func TestStore_HealthCheck_ReportsHealthy(t *testing.T) {
	cfg := newTestConfig(t)
	store, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer store.Close()

	status := store.HealthCheck(context.Background())
	assert.True(t, status.Connected)
	assert.True(t, status.Writable)
	assert.True(t, status.IntegrityOK)
	assert.True(t, status.Healthy)
}

func TestStore_CreateJobAndQuery_RoundTrips(t *testing.T) {
	cfg := newTestConfig(t)
	store, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	job, err := store.Jobs.CreateJob(ctx, types.CreateJobRequest{Type: types.JobTypeChat, Title: "hello"})
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)

	page, err := store.Jobs.QueryJobs(ctx, types.JobFilter{}, types.DefaultJobSort, types.Pagination{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestStore_Export_WritesJSONAndCSV(t *testing.T) {
	cfg := newTestConfig(t)
	store, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.Jobs.CreateJob(ctx, types.CreateJobRequest{Type: types.JobTypeChat, Title: "exported"})
	require.NoError(t, err)

	var jsonBuf bytes.Buffer
	require.NoError(t, store.Export(ctx, &jsonBuf, sqlite.ExportFormatJSON))
	assert.NotEmpty(t, jsonBuf.Bytes())

	var csvBuf bytes.Buffer
	require.NoError(t, store.Export(ctx, &csvBuf, sqlite.ExportFormatCSV))
	assert.Contains(t, csvBuf.String(), "=== jobs ===")
}

func TestStore_TriggerDailyRollup_UpdatesUsageStats(t *testing.T) {
	cfg := newTestConfig(t)
	store, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	provider, model := "openai", "gpt-4o"
	job, err := store.Jobs.CreateJob(ctx, types.CreateJobRequest{
		Type: types.JobTypeChat, Title: "rollup me", Provider: &provider, Model: &model,
	})
	require.NoError(t, err)
	completed := types.JobStatusCompleted
	_, err = store.Jobs.UpdateJob(ctx, job.ID, types.UpdateJobRequest{Status: &completed})
	require.NoError(t, err)

	require.NoError(t, store.TriggerDailyRollup(ctx, job.CreatedAt))

	stats, err := store.Usage.GetUsageStats(ctx, types.UsageFilter{Provider: &provider, Model: &model})
	require.NoError(t, err)
	require.NotEmpty(t, stats)
}
