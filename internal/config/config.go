// Package config loads the store's configuration into a typed Config
// struct. Grounded on the teacher's internal/config package — the same
// layered precedence (project file → XDG config dir → home dir → env →
// flags) and spf13/viper machinery — but deliberately not exposing a
// package-level singleton the way the teacher's `var v *viper.Viper`
// does: Load returns a *Config value the Facade owns and threads through
// explicitly, so two stores in one process (as in tests) never share
// mutable global state.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full, resolved configuration for one Store instance.
type Config struct {
	DatabasePath         string
	ArtifactStoragePath  string
	DatabaseBusyTimeoutMS int
	DatabaseCacheSizeKB  int

	LogLevel       string
	LogFilePath    string
	LogMaxSizeMB   int
	LogMaxBackups  int

	EnableRollupScheduler bool
	RollupHourLocal       int
	EnableWeeklyRollups   bool

	UsageCapture UsageCaptureConfig
	Storage      StorageLimits
}

// UsageCaptureConfig mirrors spec.md §6's
// usageCaptureConfig.{rollupIntervalMinutes, batchSize,
// enableCostCalculation, retentionDays}.
type UsageCaptureConfig struct {
	RollupIntervalMinutes int
	BatchSize             int
	EnableCostCalculation bool
	RetentionDays         int
}

// StorageLimits mirrors the storage_config table's mutable knobs, used as
// the seed defaults when no row exists yet.
type StorageLimits struct {
	DefaultArtifactRetentionDays int
	MaxArtifactSizeMB            int
	CleanupEnabled               bool
}

// Load resolves configuration from code defaults, an optional
// config.yaml (resolved by walking up from the working directory, then
// XDG config dir, then home dir), and LEDGER_-prefixed environment
// variables, in that increasing precedence order — the same order the
// teacher's Initialize applies for BD_-prefixed variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("config")

	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			candidate := filepath.Join(dir, ".ledgerstore", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				v.SetConfigFile(candidate)
				break
			}
		}
	}
	if v.ConfigFileUsed() == "" {
		if configDir, err := os.UserConfigDir(); err == nil {
			candidate := filepath.Join(configDir, "ledgerstore", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				v.SetConfigFile(candidate)
			}
		}
	}
	if v.ConfigFileUsed() == "" {
		if home, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(home, ".ledgerstore", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				v.SetConfigFile(candidate)
			}
		}
	}

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return &Config{
		DatabasePath:          v.GetString("database-path"),
		ArtifactStoragePath:   v.GetString("artifact-storage-path"),
		DatabaseBusyTimeoutMS: v.GetInt("database-busy-timeout-ms"),
		DatabaseCacheSizeKB:   v.GetInt("database-cache-size-kb"),

		LogLevel:      v.GetString("log-level"),
		LogFilePath:   v.GetString("log-file-path"),
		LogMaxSizeMB:  v.GetInt("log-max-size-mb"),
		LogMaxBackups: v.GetInt("log-max-backups"),

		EnableRollupScheduler: v.GetBool("enable-rollup-scheduler"),
		RollupHourLocal:       v.GetInt("rollup-config.rollup-hour-local"),
		EnableWeeklyRollups:   v.GetBool("rollup-config.enable-weekly-rollups"),

		UsageCapture: UsageCaptureConfig{
			RollupIntervalMinutes: v.GetInt("usage-capture-config.rollup-interval-minutes"),
			BatchSize:             v.GetInt("usage-capture-config.batch-size"),
			EnableCostCalculation: v.GetBool("usage-capture-config.enable-cost-calculation"),
			RetentionDays:         v.GetInt("usage-capture-config.retention-days"),
		},
		Storage: StorageLimits{
			DefaultArtifactRetentionDays: v.GetInt("storage.default-artifact-retention-days"),
			MaxArtifactSizeMB:            v.GetInt("storage.max-artifact-size-mb"),
			CleanupEnabled:               v.GetBool("storage.cleanup-enabled"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database-path", defaultDatabasePath())
	v.SetDefault("artifact-storage-path", defaultArtifactStoragePath())
	v.SetDefault("database-busy-timeout-ms", 30000)
	v.SetDefault("database-cache-size-kb", 2000)

	v.SetDefault("log-level", "info")
	v.SetDefault("log-file-path", "")
	v.SetDefault("log-max-size-mb", 100)
	v.SetDefault("log-max-backups", 3)

	v.SetDefault("enable-rollup-scheduler", true)
	v.SetDefault("rollup-config.rollup-hour-local", 2)
	v.SetDefault("rollup-config.enable-weekly-rollups", true)

	v.SetDefault("usage-capture-config.rollup-interval-minutes", 60)
	v.SetDefault("usage-capture-config.batch-size", 500)
	v.SetDefault("usage-capture-config.enable-cost-calculation", true)
	v.SetDefault("usage-capture-config.retention-days", 90)

	v.SetDefault("storage.default-artifact-retention-days", 90)
	v.SetDefault("storage.max-artifact-size-mb", 100)
	v.SetDefault("storage.cleanup-enabled", false)
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ledgerstore.db"
	}
	return filepath.Join(home, ".ledgerstore", "ledgerstore.db")
}

func defaultArtifactStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "artifacts"
	}
	return filepath.Join(home, ".ledgerstore", "artifacts")
}

// RollupInterval returns UsageCaptureConfig.RollupIntervalMinutes as a
// time.Duration, for callers that need it in that form.
func (c UsageCaptureConfig) RollupInterval() time.Duration {
	return time.Duration(c.RollupIntervalMinutes) * time.Minute
}
