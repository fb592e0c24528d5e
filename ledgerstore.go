// Package ledgerstore provides a minimal public API for a job-accounting
// and artifact store for a local AI workstation.
//
// Most callers should use the exported Open and the Store's repository
// fields directly. This package re-exports only the essential types and
// constructors so Go programs embedding the store don't need to import
// internal/ledger, internal/types, or internal/config themselves.
package ledgerstore

import (
	"context"
	"log/slog"

	"github.com/andromedus24/ledgerstore/internal/config"
	"github.com/andromedus24/ledgerstore/internal/ledger"
	"github.com/andromedus24/ledgerstore/internal/storage/sqlite"
	"github.com/andromedus24/ledgerstore/internal/types"
)

// Store is the job ledger's single entry point.
type Store = ledger.Store

// Config is the full, resolved configuration for one Store instance.
type Config = config.Config

// LoadConfig resolves configuration from code defaults, an optional
// config.yaml, and LEDGER_-prefixed environment variables.
func LoadConfig() (*Config, error) {
	return config.Load()
}

// Open builds and initializes a Store against cfg. logger may be nil, in
// which case slog.Default() is used.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*Store, error) {
	return ledger.Open(ctx, cfg, logger)
}

// ExportFormat selects Store.Export's output encoding.
type ExportFormat = sqlite.ExportFormat

const (
	ExportFormatJSON = sqlite.ExportFormatJSON
	ExportFormatCSV  = sqlite.ExportFormatCSV
)

// Core entity and request/filter types from internal/types.
type (
	Job                   = types.Job
	JobType               = types.JobType
	JobStatus             = types.JobStatus
	CreateJobRequest      = types.CreateJobRequest
	UpdateJobRequest      = types.UpdateJobRequest
	JobFilter             = types.JobFilter
	JobSort               = types.JobSort
	SortDirection         = types.SortDirection
	Pagination            = types.Pagination
	Page[T any]           = types.Page[T]

	JobArtifact           = types.JobArtifact
	ArtifactType          = types.ArtifactType
	CreateArtifactRequest = types.CreateArtifactRequest
	UpdateArtifactRequest = types.UpdateArtifactRequest
	ArtifactFilter        = types.ArtifactFilter
	IntegrityIssue        = types.IntegrityIssue

	JobEvent           = types.JobEvent
	EventType          = types.EventType
	EventLevel         = types.EventLevel
	CreateEventRequest = types.CreateEventRequest
	EventFilter        = types.EventFilter
	TimelineEntry      = types.TimelineEntry

	CostRate              = types.CostRate
	CreateCostRateRequest = types.CreateCostRateRequest
	CostRateFilter        = types.CostRateFilter

	UsageStats         = types.UsageStats
	UsageFilter        = types.UsageFilter
	CostBreakdownEntry = types.CostBreakdownEntry
	DashboardStats     = types.DashboardStats
	TrendBucket        = types.TrendBucket
	TrendGroupBy       = types.TrendGroupBy

	StorageConfig = types.StorageConfig
	HealthStatus  = types.HealthStatus
)

// JobType constants.
const (
	JobTypeChat            = types.JobTypeChat
	JobTypeVision          = types.JobTypeVision
	JobTypeCapture         = types.JobTypeCapture
	JobTypeAutomation      = types.JobTypeAutomation
	JobTypeImageGeneration = types.JobTypeImageGeneration
)

// JobStatus constants.
const (
	JobStatusPending   = types.JobStatusPending
	JobStatusRunning   = types.JobStatusRunning
	JobStatusCompleted = types.JobStatusCompleted
	JobStatusFailed    = types.JobStatusFailed
	JobStatusCancelled = types.JobStatusCancelled
)

// ArtifactType constants.
const (
	ArtifactTypeScreenshot = types.ArtifactTypeScreenshot
	ArtifactTypeFile       = types.ArtifactTypeFile
	ArtifactTypeLog        = types.ArtifactTypeLog
	ArtifactTypeResult     = types.ArtifactTypeResult
	ArtifactTypePreview    = types.ArtifactTypePreview
)

// EventType constants.
const (
	EventTypeCreated   = types.EventTypeCreated
	EventTypeStarted   = types.EventTypeStarted
	EventTypeProgress  = types.EventTypeProgress
	EventTypeCompleted = types.EventTypeCompleted
	EventTypeFailed    = types.EventTypeFailed
	EventTypeCancelled = types.EventTypeCancelled
	EventTypeWarning   = types.EventTypeWarning
)

// EventLevel constants.
const (
	LevelDebug = types.LevelDebug
	LevelInfo  = types.LevelInfo
	LevelWarn  = types.LevelWarn
	LevelError = types.LevelError
)

// TrendGroupBy constants.
const (
	TrendByDay  = types.TrendByDay
	TrendByWeek = types.TrendByWeek
)

// SortDirection constants.
const (
	SortAsc  = types.SortAsc
	SortDesc = types.SortDesc
)

// DefaultJobSort orders by creation time, newest first.
var DefaultJobSort = types.DefaultJobSort

// DefaultStorageConfig returns the seed values written by the initial
// migration.
func DefaultStorageConfig() StorageConfig {
	return types.DefaultStorageConfig()
}
