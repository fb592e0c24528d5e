package types

import "time"

// SchemaMigration records one applied migration, mirroring the
// schema_migrations table.
type SchemaMigration struct {
	Version         int
	Name            string
	ExecutedAt      time.Time
	ExecutionTimeMS int64
}

// StorageConfig is the mutable key/value knob set held in the
// storage_config table, seeded by the initial migration; the Facade has no
// operation that updates it.
type StorageConfig struct {
	DefaultArtifactRetentionDays int
	MaxArtifactSizeMB            int
	CleanupEnabled               bool
	UsageStatsRollupHour         int
}

// DefaultStorageConfig returns the seed values written by the initial
// migration.
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DefaultArtifactRetentionDays: 90,
		MaxArtifactSizeMB:            100,
		CleanupEnabled:               false,
		UsageStatsRollupHour:         2,
	}
}

// HealthStatus is the aggregate result of Facade.HealthCheck.
type HealthStatus struct {
	Healthy          bool
	Connected        bool
	Writable         bool
	IntegrityOK      bool
	StorageReachable bool
	SchedulerRunning bool
	Detail           string
}
