package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30000, cfg.DatabaseBusyTimeoutMS)
	assert.Equal(t, 2000, cfg.DatabaseCacheSizeKB)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "", cfg.LogFilePath)
	assert.Equal(t, 100, cfg.LogMaxSizeMB)
	assert.Equal(t, 3, cfg.LogMaxBackups)
	assert.True(t, cfg.EnableRollupScheduler)
	assert.Equal(t, 2, cfg.RollupHourLocal)
	assert.True(t, cfg.EnableWeeklyRollups)
	assert.Equal(t, 60, cfg.UsageCapture.RollupIntervalMinutes)
	assert.Equal(t, 500, cfg.UsageCapture.BatchSize)
	assert.True(t, cfg.UsageCapture.EnableCostCalculation)
	assert.Equal(t, 90, cfg.UsageCapture.RetentionDays)
	assert.Equal(t, 90, cfg.Storage.DefaultArtifactRetentionDays)
	assert.Equal(t, 100, cfg.Storage.MaxArtifactSizeMB)
	assert.False(t, cfg.Storage.CleanupEnabled)
}

func TestLoad_EnvVarOverride(t *testing.T) {
	t.Setenv("LEDGER_DATABASE_PATH", "/tmp/custom-ledger.db")
	t.Setenv("LEDGER_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-ledger.db", cfg.DatabasePath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestUsageCaptureConfig_RollupInterval(t *testing.T) {
	c := UsageCaptureConfig{RollupIntervalMinutes: 15}
	assert.Equal(t, 15*time.Minute, c.RollupInterval())
}
