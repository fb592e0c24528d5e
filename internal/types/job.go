// Package types holds the core entity projections shared across the store:
// Job, JobArtifact, JobEvent, CostRate, UsageStats, SchemaMigration, and
// StorageConfig, plus the filter/sort/pagination value types the query
// layer compiles into SQL. Free-form JSON fields (Params, Metadata, Data)
// are kept as opaque strings here and manipulated with gjson/sjson at the
// repository boundary rather than being unmarshaled into Go structs.
package types

import "time"

// JobType enumerates the kinds of AI job the store accounts for.
type JobType string

const (
	JobTypeChat            JobType = "chat"
	JobTypeVision          JobType = "vision"
	JobTypeCapture         JobType = "capture"
	JobTypeAutomation      JobType = "automation"
	JobTypeImageGeneration JobType = "image_generation"
)

// IsValid reports whether t is one of the declared job types.
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeChat, JobTypeVision, JobTypeCapture, JobTypeAutomation, JobTypeImageGeneration:
		return true
	}
	return false
}

// JobStatus enumerates the lifecycle states of a Job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsValid reports whether s is one of the declared job statuses.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether s is a terminal status requiring CompletedAt.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job is the central accounting record for one AI job execution.
type Job struct {
	ID          string
	Type        JobType
	Status      JobStatus
	Title       string
	Description string

	Provider *string
	Model    *string

	InputTokens  int64
	OutputTokens int64
	TotalCost    float64
	Currency     string

	DurationMS *int64

	ErrorMessage *string
	StackTrace   *string

	// Params and Metadata are opaque JSON documents (possibly empty "{}").
	Params   string
	Metadata string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	ParentJobID *string
}

// CreateJobRequest is the input contract for creating a Job. Callers may
// supply an ID (idempotent create); otherwise one is generated.
type CreateJobRequest struct {
	ID          string
	Type        JobType
	Title       string
	Description string
	Provider    *string
	Model       *string
	Params      string
	Metadata    string
	ParentJobID *string
}

// UpdateJobRequest carries a sparse set of fields to apply to a Job.
// Nil pointers mean "leave unchanged"; Status drives the status-transition
// timestamp invariants enforced by JobRepository.UpdateJob.
type UpdateJobRequest struct {
	Status       *JobStatus
	Title        *string
	Description  *string
	Provider     *string
	Model        *string
	InputTokens  *int64
	OutputTokens *int64
	TotalCost    *float64
	DurationMS   *int64
	ErrorMessage *string
	StackTrace   *string
	Params       *string
	Metadata     *string
}

// JobMetadataView is the thin, well-typed projection of a small number of
// known Metadata keys, surfaced for dashboard display without reifying the
// rest of the free-form document.
type JobMetadataView struct {
	SessionID string
	Workspace string
}

// SortDirection is the direction of a query-layer sort.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// JobSort names an indexed Job column plus a direction for cursor pagination.
type JobSort struct {
	Column    string
	Direction SortDirection
}

// DefaultJobSort orders by creation time, newest first, matching the
// jobs(created_at DESC) index.
var DefaultJobSort = JobSort{Column: "created_at", Direction: SortDesc}

// JobFilter is the set of predicates the filter→SQL compiler accepts for
// JobRepository.QueryJobs.
type JobFilter struct {
	Type          *JobType
	Status        *JobStatus
	Provider      *string
	Model         *string
	TitleContains *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	DurationMinMS *int64
	DurationMaxMS *int64
	CostMin       *float64
	CostMax       *float64
	ParentJobID   *string
	HasError      *bool
}

// Pagination is a cursor-based page request. Limit is capped to 1000 by
// the query layer regardless of the requested value.
type Pagination struct {
	Limit  int
	Cursor string // opaque base64(JSON(value)) cursor, empty for first page
}

// Page wraps a query result with cursor-pagination metadata.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}
