// Package ledger is the Facade tying together the database manager,
// artifact store, repositories, usage tracker, and rollup scheduler into
// one object with a fixed initialization order, mirroring the teacher's
// own top-level Storage implementation that wires its sqlite package
// together behind a single constructor.
package ledger

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/andromedus24/ledgerstore/internal/artifactstore"
	"github.com/andromedus24/ledgerstore/internal/config"
	"github.com/andromedus24/ledgerstore/internal/errs"
	"github.com/andromedus24/ledgerstore/internal/scheduler"
	"github.com/andromedus24/ledgerstore/internal/storage"
	"github.com/andromedus24/ledgerstore/internal/storage/sqlite"
	"github.com/andromedus24/ledgerstore/internal/types"
	"github.com/andromedus24/ledgerstore/internal/usage"
)

// Store is the job ledger's single entry point: every repository,
// scheduled task, and lifecycle operation (backup, restore, vacuum,
// health check) hangs off this one value.
type Store struct {
	cfg    *config.Config
	logger *slog.Logger

	db       *sqlite.DatabaseManager
	blobs    *artifactstore.Store
	rollup   *sqlite.RollupEngine
	sched    *scheduler.Scheduler
	exporter *sqlite.Exporter

	Jobs      storage.JobStore
	Artifacts storage.ArtifactStore
	Events    storage.EventStore
	Usage     storage.UsageStore
	CostRates storage.CostRateStore

	mu          sync.RWMutex
	initialized bool
}

// Open builds and initializes a Store in the fixed order: database
// manager (which runs migrations as part of Open) → artifact blob
// store → repositories → usage tracker wired into the job repository →
// rollup engine → scheduler, started last so it never fires before every
// other dependency exists.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlite.Open(ctx, cfg.DatabasePath, sqlite.Options{
		BusyTimeoutMS: cfg.DatabaseBusyTimeoutMS,
		CacheSizeKB:   cfg.DatabaseCacheSizeKB,
	})
	if err != nil {
		return nil, err
	}

	blobs, err := artifactstore.New(cfg.ArtifactStoragePath)
	if err != nil {
		db.Close()
		return nil, err
	}

	costRates := sqlite.NewCostRateRepository(db)
	usageRepo := sqlite.NewUsageRepository(db)
	events := sqlite.NewEventRepository(db)

	var jobs *sqlite.JobRepository
	if cfg.UsageCapture.EnableCostCalculation {
		tracker := usage.New(costRates, usageRepo)
		jobs = sqlite.NewJobRepository(db, tracker, events, logger)
	} else {
		jobs = sqlite.NewJobRepository(db, nil, events, logger)
	}
	artifacts := sqlite.NewArtifactRepository(db, blobs)
	rollup := sqlite.NewRollupEngine(db, usageRepo, events)
	exporter := sqlite.NewExporter(db)

	s := &Store{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		blobs:     blobs,
		rollup:    rollup,
		exporter:  exporter,
		Jobs:      jobs,
		Artifacts: artifacts,
		Events:    events,
		Usage:     usageRepo,
		CostRates: costRates,
	}

	s.sched = scheduler.New(s, scheduler.Options{
		RollupHourLocal:     cfg.RollupHourLocal,
		EnableWeeklyRollups: cfg.EnableWeeklyRollups,
		Logger:              logger,
	})
	if cfg.EnableRollupScheduler {
		s.sched.Start(ctx)
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	return s, nil
}

// guard returns ErrNotInitialized if the store has not finished Open, or
// has already been closed.
func (s *Store) guard() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return errs.ErrNotInitialized
	}
	return nil
}

// Close stops the scheduler and releases the database handle. Close
// waits for any in-flight scheduler rollup to finish before releasing the
// handle, per spec §5 Cancellation.
func (s *Store) Close() error {
	if err := s.guard(); err != nil {
		return err
	}
	s.sched.Stop()

	s.mu.Lock()
	s.initialized = false
	s.mu.Unlock()

	return s.db.Close()
}

// Backup, Restore, Vacuum, Analyze, IntegrityCheck delegate to the
// DatabaseManager after checking initialization.

func (s *Store) Backup(ctx context.Context, path string) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.db.Backup(ctx, path)
}

func (s *Store) Restore(ctx context.Context, path string) error {
	if err := s.guard(); err != nil {
		return err
	}
	err := s.db.Restore(ctx, path)
	s.Usage.Invalidate()
	return err
}

func (s *Store) Vacuum(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.db.Vacuum(ctx)
}

func (s *Store) Analyze(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.db.Analyze(ctx)
}

func (s *Store) IntegrityCheck(ctx context.Context) (bool, string, error) {
	if err := s.guard(); err != nil {
		return false, "", err
	}
	return s.db.IntegrityCheck(ctx)
}

// HealthCheck aggregates DatabaseManager, artifact storage, and scheduler
// status into one HealthStatus.
func (s *Store) HealthCheck(ctx context.Context) types.HealthStatus {
	if err := s.guard(); err != nil {
		return types.HealthStatus{Detail: err.Error()}
	}

	status := types.HealthStatus{Connected: true, SchedulerRunning: s.cfg.EnableRollupScheduler}

	if err := s.db.HealthCheck(ctx); err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Writable = true

	ok, detail, err := s.db.IntegrityCheck(ctx)
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	status.IntegrityOK = ok
	if !ok {
		status.Detail = detail
	}

	// Open already ensured the artifact storage root exists (MkdirAll);
	// its writability is not checked here.
	status.StorageReachable = true

	status.Healthy = status.Connected && status.Writable && status.IntegrityOK
	return status
}

// Export writes every accounting table to w in the requested format
// (sqlite.ExportFormatJSON or sqlite.ExportFormatCSV).
func (s *Store) Export(ctx context.Context, w io.Writer, format sqlite.ExportFormat) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.exporter.Export(ctx, w, format)
}

// GetArtifactStats reports storage-wide artifact counts and size.
func (s *Store) GetArtifactStats(ctx context.Context) (*types.ArtifactStats, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.Artifacts.GetArtifactStats(ctx)
}

// SearchArtifacts finds artifacts by a free-text name query.
func (s *Store) SearchArtifacts(ctx context.Context, query string, page types.Pagination) (types.Page[*types.JobArtifact], error) {
	if err := s.guard(); err != nil {
		return types.Page[*types.JobArtifact]{}, err
	}
	return s.Artifacts.SearchArtifacts(ctx, query, page)
}

// CleanupOldArtifacts hard-deletes soft-deleted artifacts past the
// configured retention window and sweeps their blobs from disk.
func (s *Store) CleanupOldArtifacts(ctx context.Context) (int, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	return s.Artifacts.CleanupOldArtifacts(ctx, s.cfg.Storage.DefaultArtifactRetentionDays)
}

// VerifyArtifactIntegrity checks every non-deleted artifact against its
// blob on disk.
func (s *Store) VerifyArtifactIntegrity(ctx context.Context) ([]types.IntegrityIssue, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.Artifacts.VerifyArtifactIntegrity(ctx)
}

// PerformDailyRollup satisfies scheduler.RollupRunner.
func (s *Store) PerformDailyRollup(ctx context.Context, date time.Time) error {
	err := s.rollup.PerformDailyRollup(ctx, date)
	s.Usage.Invalidate()
	return err
}

// PerformWeeklyRollup satisfies scheduler.RollupRunner.
func (s *Store) PerformWeeklyRollup(ctx context.Context, weekStart time.Time) error {
	err := s.rollup.PerformWeeklyRollup(ctx, weekStart)
	s.Usage.Invalidate()
	return err
}

// CleanupOldStats satisfies scheduler.RollupRunner: usage_stats are pruned
// by UsageCapture.RetentionDays and job_events by the artifact retention
// setting, Storage.DefaultArtifactRetentionDays.
func (s *Store) CleanupOldStats(ctx context.Context) error {
	return s.rollup.CleanupOldStats(ctx, s.cfg.UsageCapture.RetentionDays, s.cfg.Storage.DefaultArtifactRetentionDays)
}

// TriggerDailyRollup exposes a manual replay of the daily rollup for an
// arbitrary date, bypassing the scheduler's timer.
func (s *Store) TriggerDailyRollup(ctx context.Context, date time.Time) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.sched.TriggerDailyRollup(ctx, date)
}

// TriggerWeeklyRollup exposes a manual replay of the weekly rollup for an
// arbitrary week start, bypassing the scheduler's timer.
func (s *Store) TriggerWeeklyRollup(ctx context.Context, weekStart time.Time) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.sched.TriggerWeeklyRollup(ctx, weekStart)
}
