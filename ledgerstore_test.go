package ledgerstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_WithExplicitConfig_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		DatabasePath:          filepath.Join(dir, "store.db"),
		ArtifactStoragePath:   filepath.Join(dir, "artifacts"),
		DatabaseBusyTimeoutMS: 5000,
		DatabaseCacheSizeKB:   2000,
		LogLevel:              "error",
		EnableRollupScheduler: false,
	}

	store, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer store.Close()

	job, err := store.Jobs.CreateJob(context.Background(), CreateJobRequest{
		Type:  JobTypeChat,
		Title: "public api smoke test",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)

	page, err := store.Jobs.QueryJobs(context.Background(), JobFilter{}, DefaultJobSort, Pagination{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestLoadConfig_ReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.DatabasePath)
}

func TestDefaultStorageConfig_HasPositiveDefaults(t *testing.T) {
	sc := DefaultStorageConfig()
	assert.Greater(t, sc.DefaultArtifactRetentionDays, 0)
}
