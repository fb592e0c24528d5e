// Package sqlite is the pure-Go SQLite backend for the job ledger. It
// implements every interface in internal/storage on top of
// github.com/ncruces/go-sqlite3, the same CGO-free driver the teacher
// codebase standardized on, so the ledger embeds into a desktop app
// without a C toolchain.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"

	"github.com/andromedus24/ledgerstore/internal/errs"
)

// Options configures a DatabaseManager at Open time. Zero values fall back
// to the teacher's historical defaults for a single-writer desktop
// workload.
type Options struct {
	// BusyTimeoutMS is the SQLite busy_timeout pragma, in milliseconds.
	BusyTimeoutMS int
	// CacheSizeKB is the SQLite cache_size pragma, in kibibytes (negative
	// cache_size units in SQLite itself; Options takes a positive KB and
	// DatabaseManager negates it when building the DSN).
	CacheSizeKB int
	// MaxRetries bounds the exponential backoff retry loop used around
	// write transactions that hit SQLITE_BUSY.
	MaxRetries int
}

func (o Options) withDefaults() Options {
	if o.BusyTimeoutMS <= 0 {
		o.BusyTimeoutMS = 30000
	}
	if o.CacheSizeKB <= 0 {
		o.CacheSizeKB = 2000
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	return o
}

// DatabaseManager owns the *sql.DB handle plus the lifecycle operations
// (migrate, backup, restore, vacuum, analyze, integrity check) that sit
// above plain repository queries. Grounded on the teacher's
// internal/storage/sqlite database-open path, generalized from a
// single hard-coded DSN into configurable Options.
type DatabaseManager struct {
	db      *sql.DB
	path    string
	opts    Options
	fileLck *flock.Flock
}

// Open creates (if needed) and opens the SQLite database at path, applies
// pragmas, and runs pending migrations. The returned DatabaseManager is
// safe for concurrent use by multiple goroutines.
func Open(ctx context.Context, path string, opts Options) (*DatabaseManager, error) {
	opts = opts.withDefaults()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.NewDatabase(errs.CodeInitializationFailed, "failed to create database directory", err)
		}
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-%d)&_pragma=temp_store(MEMORY)",
		path, opts.BusyTimeoutMS, opts.CacheSizeKB,
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeInitializationFailed, "failed to open database", err)
	}
	// A single connection avoids SQLITE_BUSY storms under WAL; reads and
	// writes from this process are serialized through it.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.NewDatabase(errs.CodeInitializationFailed, "failed to ping database", err)
	}

	mgr := &DatabaseManager{
		db:      db,
		path:    path,
		opts:    opts,
		fileLck: flock.New(path + ".lock"),
	}

	if err := mgr.runMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return mgr, nil
}

// DB returns the underlying handle for repositories in this package.
func (m *DatabaseManager) DB() *sql.DB {
	return m.db
}

// Close releases the database handle.
func (m *DatabaseManager) Close() error {
	if err := m.db.Close(); err != nil {
		return errs.NewDatabase(errs.CodeCloseFailed, "failed to close database", err)
	}
	return nil
}

// withRetry runs fn, retrying with exponential backoff while fn reports a
// SQLITE_BUSY / SQLITE_LOCKED condition. Grounded on beads' own fork
// dependency on cenkalti/backoff/v4 for exactly this purpose around
// single-writer SQLite contention.
func (m *DatabaseManager) withRetry(ctx context.Context, fn func() error) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(m.opts.MaxRetries))
	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isBusyErr(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(b, ctx))
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return containsAny(msg, "SQLITE_BUSY", "SQLITE_LOCKED", "database is locked")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(s) >= len(sub) {
			for i := 0; i+len(sub) <= len(s); i++ {
				if s[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}

// executeInTransaction runs fn inside a transaction, committing on success
// and rolling back on any error, retrying the whole attempt on busy-lock
// contention.
func (m *DatabaseManager) executeInTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return m.withRetry(ctx, func() error {
		tx, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// Backup copies the live database file to path under an advisory file
// lock, using SQLite's own VACUUM INTO so WAL contents are folded into a
// single consistent snapshot.
func (m *DatabaseManager) Backup(ctx context.Context, path string) error {
	locked, err := m.fileLck.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil || !locked {
		return errs.NewDatabase(errs.CodeBackupFailed, "could not acquire database lock for backup", err)
	}
	defer m.fileLck.Unlock()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.NewDatabase(errs.CodeBackupFailed, "failed to create backup directory", err)
		}
	}

	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return errs.NewDatabase(errs.CodeBackupFailed, "VACUUM INTO failed", err)
	}
	return nil
}

// Restore replaces the live database with the contents of path. The
// caller must not hold any open transactions; Restore closes and reopens
// the connection.
func (m *DatabaseManager) Restore(ctx context.Context, path string) error {
	locked, err := m.fileLck.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil || !locked {
		return errs.NewDatabase(errs.CodeRestoreFailed, "could not acquire database lock for restore", err)
	}
	defer m.fileLck.Unlock()

	if _, err := os.Stat(path); err != nil {
		return errs.NewDatabase(errs.CodeRestoreFailed, "backup file not found", err)
	}

	if err := m.db.Close(); err != nil {
		return errs.NewDatabase(errs.CodeRestoreFailed, "failed to close live database before restore", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errs.NewDatabase(errs.CodeRestoreFailed, "failed to read backup file", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return errs.NewDatabase(errs.CodeRestoreFailed, "failed to overwrite live database file", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Remove(m.path + suffix)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-%d)&_pragma=temp_store(MEMORY)",
		m.path, m.opts.BusyTimeoutMS, m.opts.CacheSizeKB,
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return errs.NewDatabase(errs.CodeRestoreFailed, "failed to reopen database after restore", err)
	}
	db.SetMaxOpenConns(1)
	m.db = db
	return nil
}

// Vacuum rebuilds the database file to reclaim space left by deletes.
func (m *DatabaseManager) Vacuum(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, "VACUUM"); err != nil {
		return errs.NewDatabase(errs.CodeVacuumFailed, "VACUUM failed", err)
	}
	return nil
}

// Analyze refreshes the query planner statistics.
func (m *DatabaseManager) Analyze(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return errs.NewDatabase(errs.CodeAnalyzeFailed, "ANALYZE failed", err)
	}
	return nil
}

// IntegrityCheck runs SQLite's own PRAGMA integrity_check and reports
// whether the database passed.
func (m *DatabaseManager) IntegrityCheck(ctx context.Context) (bool, string, error) {
	row := m.db.QueryRowContext(ctx, "PRAGMA integrity_check")
	var result string
	if err := row.Scan(&result); err != nil {
		return false, "", errs.NewDatabase(errs.CodeIntegrityCheckFailed, "integrity_check query failed", err)
	}
	return result == "ok", result, nil
}

// HealthCheck verifies the connection is alive and writable.
func (m *DatabaseManager) HealthCheck(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return errs.NewDatabase(errs.CodeNotInitialized, "database ping failed", err)
	}
	// Rewriting user_version with its current value takes a write lock and
	// writes the header page without changing any data.
	var version int
	if err := m.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return errs.NewDatabase(errs.CodeNotInitialized, "failed to read user_version", err)
	}
	if _, err := m.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return errs.NewDatabase(errs.CodeNotInitialized, "database not writable", err)
	}
	return nil
}
