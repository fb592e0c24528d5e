// Package storage defines the interfaces a persistence backend for the
// job ledger must satisfy. Only internal/storage/sqlite implements it
// today; the interface exists so repositories, the query layer, and the
// scheduler depend on a narrow contract rather than a concrete database
// handle, following the same seam the teacher codebase draws between
// internal/storage (interface) and internal/storage/sqlite (implementation).
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/andromedus24/ledgerstore/internal/types"
)

// JobStore is the subset of persistence operations the job/usage/event
// machinery needs against Jobs.
type JobStore interface {
	CreateJob(ctx context.Context, req types.CreateJobRequest) (*types.Job, error)
	GetJob(ctx context.Context, id string) (*types.Job, error)
	UpdateJob(ctx context.Context, id string, req types.UpdateJobRequest) (*types.Job, error)
	DeleteJob(ctx context.Context, id string, hard bool) error
	QueryJobs(ctx context.Context, filter types.JobFilter, sort types.JobSort, page types.Pagination) (types.Page[*types.Job], error)
	CountJobs(ctx context.Context, filter types.JobFilter) (int64, error)
}

// ArtifactStore is the subset of persistence operations against
// JobArtifacts.
type ArtifactStore interface {
	CreateArtifact(ctx context.Context, req types.CreateArtifactRequest) (*types.JobArtifact, error)
	GetArtifactByID(ctx context.Context, id string) (*types.JobArtifact, error)
	GetArtifactData(ctx context.Context, id string) ([]byte, error)
	QueryArtifacts(ctx context.Context, filter types.ArtifactFilter, page types.Pagination) (types.Page[*types.JobArtifact], error)
	GetArtifactsByJob(ctx context.Context, jobID string) ([]*types.JobArtifact, error)
	UpdateArtifact(ctx context.Context, id string, req types.UpdateArtifactRequest) (*types.JobArtifact, error)
	DeleteArtifact(ctx context.Context, id string, hard bool) error
	GetArtifactStats(ctx context.Context) (*types.ArtifactStats, error)
	SearchArtifacts(ctx context.Context, query string, page types.Pagination) (types.Page[*types.JobArtifact], error)
	CleanupOldArtifacts(ctx context.Context, retentionDays int) (int, error)
	VerifyArtifactIntegrity(ctx context.Context) ([]types.IntegrityIssue, error)
}

// EventStore is the subset of persistence operations against JobEvents.
type EventStore interface {
	CreateEvent(ctx context.Context, req types.CreateEventRequest) (*types.JobEvent, error)
	QueryEvents(ctx context.Context, filter types.EventFilter, page types.Pagination) (types.Page[*types.JobEvent], error)
	GetEventsByJob(ctx context.Context, jobID string, limit int) ([]*types.JobEvent, error)
	GetJobTimeline(ctx context.Context, jobID string) ([]types.TimelineEntry, error)
	CleanupOldEvents(ctx context.Context, retentionDays int) (int64, error)
	CreateBatchEvents(ctx context.Context, reqs []types.CreateEventRequest) (inserted int, failed int)
}

// UsageStore is the subset of persistence operations against usage_stats
// and the read-aggregation surface UsageRepository exposes.
type UsageStore interface {
	Invalidate()
	UpsertUsageStats(ctx context.Context, row types.UsageStats) error
	GetUsageStats(ctx context.Context, filter types.UsageFilter) ([]types.UsageStats, error)
	GetCostBreakdown(ctx context.Context, start, end time.Time, provider, model *string) ([]types.CostBreakdownEntry, error)
	GetDashboardStats(ctx context.Context, days int) (*types.DashboardStats, error)
	GetUsageTrends(ctx context.Context, days int, groupBy types.TrendGroupBy) ([]types.TrendBucket, error)
	CleanupOldStats(ctx context.Context, retentionDays int) (int64, error)
}

// CostRateStore is the subset of persistence operations against cost_rates.
type CostRateStore interface {
	CreateCostRate(ctx context.Context, req types.CreateCostRateRequest) (*types.CostRate, error)
	GetCurrentCostRate(ctx context.Context, provider, model string) (*types.CostRate, error)
	GetCostRates(ctx context.Context, filter types.CostRateFilter) ([]*types.CostRate, error)
}

// Manager is the subset of DatabaseManager operations exposed outside the
// sqlite package. The Facade holds the concrete *sqlite.DatabaseManager
// rather than this interface.
type Manager interface {
	Backup(ctx context.Context, path string) error
	Restore(ctx context.Context, path string) error
	Vacuum(ctx context.Context) error
	Analyze(ctx context.Context) error
	IntegrityCheck(ctx context.Context) (bool, string, error)
	HealthCheck(ctx context.Context) error
	Close() error
	DB() *sql.DB
}
