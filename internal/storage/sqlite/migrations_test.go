package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_ApplyOnceAndAreIdempotent(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	var count int
	require.NoError(t, mgr.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(migrationsList), count)

	// Re-running the migration runner against an already-migrated database
	// must not error and must not re-apply any migration.
	require.NoError(t, mgr.runMigrations(ctx))
	require.NoError(t, mgr.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(migrationsList), count)
}

func TestMigrations_RollbackToVersion_DropsTablesAndClearsBookkeeping(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.rollbackToVersion(ctx, 0))

	var migrationCount int
	require.NoError(t, mgr.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&migrationCount))
	assert.Equal(t, 0, migrationCount)

	_, err := mgr.DB().QueryContext(ctx, "SELECT 1 FROM jobs")
	assert.Error(t, err)
}

func TestMigrations_RollbackToVersion_NoOpWhenAlreadyAtTarget(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.rollbackToVersion(ctx, len(migrationsList)))

	var count int
	require.NoError(t, mgr.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(migrationsList), count)
}

func TestMigrations_RollbackToVersion_FailsWithoutDownStep(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	original := migrationsList
	migrationsList = append(append([]migration{}, original...), migration{
		Version: 2,
		Name:    "irreversible_step",
		Func:    func(ctx context.Context, tx *sql.Tx) error { return nil },
	})
	t.Cleanup(func() { migrationsList = original })

	require.NoError(t, mgr.runMigrations(ctx))
	assert.Error(t, mgr.rollbackToVersion(ctx, 0))

	var count int
	require.NoError(t, mgr.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestMigrations_SeedsCostRatesAndStorageConfig(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	var costRateCount int
	require.NoError(t, mgr.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM cost_rates").Scan(&costRateCount))
	assert.Equal(t, len(seedCostRates), costRateCount)

	var configCount int
	require.NoError(t, mgr.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM storage_config").Scan(&configCount))
	assert.Equal(t, len(seedStorageConfig), configCount)
}
