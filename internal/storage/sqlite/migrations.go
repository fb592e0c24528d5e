package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andromedus24/ledgerstore/internal/errs"
)

// migration is one schema step. Down may be nil for a migration that is
// not reversible; rollbackToVersion then refuses to roll past it.
// Grounded on the teacher's Migration{Name, Func} struct in
// internal/storage/sqlite/migrations.go, generalized to job-ledger tables
// with an added reverse-direction Func.
type migration struct {
	Version int
	Name    string
	Func    func(ctx context.Context, tx *sql.Tx) error
	Down    func(ctx context.Context, tx *sql.Tx) error
}

var migrationsList = []migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Func:    migrateInitialSchema,
		Down:    migrateInitialSchemaDown,
	},
}

// runMigrations applies every migration whose version is not yet recorded
// in schema_migrations, each inside its own transaction so a crash
// mid-migration can never leave a half-applied step visible to another
// connection. Grounded on the teacher's RunMigrations: PRAGMA
// foreign_keys OFF around the migration transactions, one row per applied
// migration recorded with its execution time.
func (m *DatabaseManager) runMigrations(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errs.NewDatabase(errs.CodeInitializationFailed, "failed to disable foreign keys for migration", err)
	}
	defer m.db.ExecContext(ctx, "PRAGMA foreign_keys = ON")

	if _, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		executed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		execution_time_ms INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		return errs.NewDatabase(errs.CodeInitializationFailed, "failed to create schema_migrations table", err)
	}

	applied := map[int]bool{}
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return errs.NewDatabase(errs.CodeInitializationFailed, "failed to read schema_migrations", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return errs.NewDatabase(errs.CodeInitializationFailed, "failed to scan schema_migrations row", err)
		}
		applied[v] = true
	}
	rows.Close()

	for _, mig := range migrationsList {
		if applied[mig.Version] {
			continue
		}
		start := time.Now()
		tx, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return errs.NewDatabase(errs.CodeInitializationFailed, fmt.Sprintf("failed to begin migration %d", mig.Version), err)
		}
		if err := mig.Func(ctx, tx); err != nil {
			tx.Rollback()
			return errs.NewDatabase(errs.CodeInitializationFailed, fmt.Sprintf("migration %d (%s) failed", mig.Version, mig.Name), err)
		}
		elapsed := time.Since(start).Milliseconds()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name, execution_time_ms) VALUES (?, ?, ?)",
			mig.Version, mig.Name, elapsed,
		); err != nil {
			tx.Rollback()
			return errs.NewDatabase(errs.CodeInitializationFailed, fmt.Sprintf("failed to record migration %d", mig.Version), err)
		}
		if err := tx.Commit(); err != nil {
			return errs.NewDatabase(errs.CodeInitializationFailed, fmt.Sprintf("failed to commit migration %d", mig.Version), err)
		}
	}

	return nil
}

func migrateInitialSchema(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema DDL: %w", err)
	}

	epoch := time.Unix(0, 0).UTC().Format("2006-01-02")
	for _, rate := range seedCostRates {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cost_rates (id, provider, model, input_token_rate, output_token_rate, currency, effective_from, effective_to)
			 VALUES (?, ?, ?, ?, ?, 'USD', ?, NULL)`,
			uuid.NewString(), rate.Provider, rate.Model, rate.InputRate, rate.OutputRate, epoch,
		); err != nil {
			return fmt.Errorf("seeding cost rate %s/%s: %w", rate.Provider, rate.Model, err)
		}
	}

	for key, value := range seedStorageConfig {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO storage_config (key, value) VALUES (?, ?)", key, value,
		); err != nil {
			return fmt.Errorf("seeding storage_config %s: %w", key, err)
		}
	}

	return nil
}

// migrateInitialSchemaDown drops every table migrateInitialSchema
// creates, in FK-dependency order (dependents before the tables they
// reference). schema_migrations itself is left alone; rollbackToVersion
// deletes its own bookkeeping row once Down succeeds.
func migrateInitialSchemaDown(ctx context.Context, tx *sql.Tx) error {
	tables := []string{
		"job_artifacts",
		"job_events",
		"usage_stats",
		"cost_rates",
		"storage_config",
		"jobs",
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("dropping table %s: %w", table, err)
		}
	}
	return nil
}

// rollbackToVersion reverts every applied migration with a version
// strictly greater than targetVersion, in reverse version order, each
// inside its own transaction. It fails without reverting anything if any
// selected migration has no Down, since there would be no way to
// continue rolling back past it.
func (m *DatabaseManager) rollbackToVersion(ctx context.Context, targetVersion int) error {
	applied := map[int]bool{}
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return errs.NewDatabase(errs.CodeInitializationFailed, "failed to read schema_migrations", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return errs.NewDatabase(errs.CodeInitializationFailed, "failed to scan schema_migrations row", err)
		}
		applied[v] = true
	}
	rows.Close()

	var toRollback []migration
	for _, mig := range migrationsList {
		if mig.Version > targetVersion && applied[mig.Version] {
			toRollback = append(toRollback, mig)
		}
	}
	for _, mig := range toRollback {
		if mig.Down == nil {
			return errs.NewValidation(errs.CodeMigrationNotReversible, fmt.Sprintf("migration %d (%s) has no down step", mig.Version, mig.Name))
		}
	}

	for i := len(toRollback) - 1; i >= 0; i-- {
		mig := toRollback[i]

		tx, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return errs.NewDatabase(errs.CodeInitializationFailed, fmt.Sprintf("failed to begin rollback of migration %d", mig.Version), err)
		}
		if err := mig.Down(ctx, tx); err != nil {
			tx.Rollback()
			return errs.NewDatabase(errs.CodeInitializationFailed, fmt.Sprintf("rollback of migration %d (%s) failed", mig.Version, mig.Name), err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", mig.Version); err != nil {
			tx.Rollback()
			return errs.NewDatabase(errs.CodeInitializationFailed, fmt.Sprintf("failed to clear schema_migrations row for %d", mig.Version), err)
		}
		if err := tx.Commit(); err != nil {
			return errs.NewDatabase(errs.CodeInitializationFailed, fmt.Sprintf("failed to commit rollback of migration %d", mig.Version), err)
		}
	}

	return nil
}
