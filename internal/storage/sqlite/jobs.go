package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/andromedus24/ledgerstore/internal/errs"
	"github.com/andromedus24/ledgerstore/internal/types"
)

// jobUsageTracker is the narrow surface JobRepository needs from
// internal/usage.Tracker, kept local so this package never imports
// internal/usage directly for anything but this interface shape.
type jobUsageTracker interface {
	CaptureJobUsage(ctx context.Context, job *types.Job) (cost float64, ok bool, err error)
}

// jobEventCreator is the narrow surface JobRepository needs from
// EventRepository, to append a "created" event on job creation.
type jobEventCreator interface {
	CreateEvent(ctx context.Context, req types.CreateEventRequest) (*types.JobEvent, error)
}

// JobRepository implements storage.JobStore against a *DatabaseManager.
// Grounded on the teacher's issues.go repository style: a thin struct
// wrapping the shared *sql.DB, one method per storage.Storage operation.
// No method opens a transaction; UpdateJob's read-then-write runs as two
// separate statements.
type JobRepository struct {
	mgr     *DatabaseManager
	tracker jobUsageTracker
	events  jobEventCreator
	logger  *slog.Logger
}

// NewJobRepository constructs a JobRepository. tracker and events may be
// nil (usage capture and created-event emission are then both skipped);
// logger defaults to slog.Default() when nil.
func NewJobRepository(mgr *DatabaseManager, tracker jobUsageTracker, events jobEventCreator, logger *slog.Logger) *JobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRepository{mgr: mgr, tracker: tracker, events: events, logger: logger}
}

// CreateJob inserts a new job row. ID defaults to a fresh UUID when the
// caller leaves req.ID empty.
func (r *JobRepository) CreateJob(ctx context.Context, req types.CreateJobRequest) (*types.Job, error) {
	if err := validateJobType(req.Type); err != nil {
		return nil, err
	}
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	params := req.Params
	if params == "" {
		params = "{}"
	}
	metadata := req.Metadata
	if metadata == "" {
		metadata = "{}"
	}

	now := time.Now().UTC()
	_, err := r.mgr.DB().ExecContext(ctx, `
		INSERT INTO jobs (id, type, status, title, description, provider, model, params, metadata, created_at, updated_at, parent_job_id)
		VALUES (?, ?, 'pending', ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, req.Type, req.Title, req.Description, req.Provider, req.Model, params, metadata, now, now, req.ParentJobID)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeCreateJobFailed, "failed to insert job", err)
	}

	if r.events != nil {
		if _, err := r.events.CreateEvent(ctx, types.CreateEventRequest{
			JobID:     id,
			EventType: types.EventTypeCreated,
			Level:     types.LevelInfo,
		}); err != nil {
			r.logger.Warn("failed to emit job created event", "job_id", id, "error", err)
		}
	}

	return r.GetJob(ctx, id)
}

const jobColumns = `id, type, status, title, description, provider, model, input_tokens, output_tokens,
	total_cost, currency, duration_ms, error_message, stack_trace, params, metadata,
	created_at, updated_at, started_at, completed_at, parent_job_id`

func scanJob(row interface{ Scan(...any) error }) (*types.Job, error) {
	var j types.Job
	var provider, model, errMsg, stackTrace, parentID sql.NullString
	var durationMS sql.NullInt64
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&j.ID, &j.Type, &j.Status, &j.Title, &j.Description, &provider, &model,
		&j.InputTokens, &j.OutputTokens, &j.TotalCost, &j.Currency, &durationMS,
		&errMsg, &stackTrace, &j.Params, &j.Metadata, &j.CreatedAt, &j.UpdatedAt,
		&startedAt, &completedAt, &parentID,
	)
	if err != nil {
		return nil, err
	}
	if provider.Valid {
		j.Provider = &provider.String
	}
	if model.Valid {
		j.Model = &model.String
	}
	if errMsg.Valid {
		j.ErrorMessage = &errMsg.String
	}
	if stackTrace.Valid {
		j.StackTrace = &stackTrace.String
	}
	if parentID.Valid {
		j.ParentJobID = &parentID.String
	}
	if durationMS.Valid {
		j.DurationMS = &durationMS.Int64
	}
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	return &j, nil
}

// GetJob fetches a job by ID, returning a NotFoundError if it doesn't
// exist.
func (r *JobRepository) GetJob(ctx context.Context, id string) (*types.Job, error) {
	row := r.mgr.DB().QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, errs.NewNotFound(errs.CodeJobNotFound, "job "+id+" not found")
	}
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan job", err)
	}
	return job, nil
}

// UpdateJob applies a sparse patch to a job, stamping started_at/completed_at
// when Status transitions into "running" or a terminal state respectively,
// per spec invariant I2. Params/Metadata, when provided, are merged into
// the existing JSON document field-by-field using sjson rather than
// overwriting the whole blob, so a caller patching one key never clobbers
// unrelated keys set earlier.
func (r *JobRepository) UpdateJob(ctx context.Context, id string, req types.UpdateJobRequest) (*types.Job, error) {
	existing, err := r.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	set := []string{}
	args := []any{}

	if req.Status != nil {
		if err := validateJobStatus(*req.Status); err != nil {
			return nil, err
		}
		set = append(set, "status = ?")
		args = append(args, *req.Status)

		if *req.Status == types.JobStatusRunning && existing.StartedAt == nil {
			set = append(set, "started_at = ?")
			args = append(args, time.Now().UTC())
		}
		if (*req.Status).IsTerminal() && existing.CompletedAt == nil {
			set = append(set, "completed_at = ?")
			args = append(args, time.Now().UTC())
		}
	}
	if req.Title != nil {
		if err := validateTitle(*req.Title); err != nil {
			return nil, err
		}
		set = append(set, "title = ?")
		args = append(args, *req.Title)
	}
	if req.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *req.Description)
	}
	if req.Provider != nil {
		set = append(set, "provider = ?")
		args = append(args, *req.Provider)
	}
	if req.Model != nil {
		set = append(set, "model = ?")
		args = append(args, *req.Model)
	}
	if req.InputTokens != nil {
		if err := validateNonNegative("input_tokens", *req.InputTokens); err != nil {
			return nil, err
		}
		set = append(set, "input_tokens = ?")
		args = append(args, *req.InputTokens)
	}
	if req.OutputTokens != nil {
		if err := validateNonNegative("output_tokens", *req.OutputTokens); err != nil {
			return nil, err
		}
		set = append(set, "output_tokens = ?")
		args = append(args, *req.OutputTokens)
	}
	if req.TotalCost != nil {
		set = append(set, "total_cost = ?")
		args = append(args, *req.TotalCost)
	}
	if req.DurationMS != nil {
		set = append(set, "duration_ms = ?")
		args = append(args, *req.DurationMS)
	}
	if req.ErrorMessage != nil {
		set = append(set, "error_message = ?")
		args = append(args, *req.ErrorMessage)
	}
	if req.StackTrace != nil {
		set = append(set, "stack_trace = ?")
		args = append(args, *req.StackTrace)
	}
	if req.Metadata != nil {
		merged, err := mergeJSON(existing.Metadata, *req.Metadata)
		if err != nil {
			return nil, errs.NewValidation(errs.CodeInvalidJobType, "metadata is not valid JSON: "+err.Error())
		}
		set = append(set, "metadata = ?")
		args = append(args, merged)
	}
	if req.Params != nil {
		merged, err := mergeJSON(existing.Params, *req.Params)
		if err != nil {
			return nil, errs.NewValidation(errs.CodeInvalidJobType, "params is not valid JSON: "+err.Error())
		}
		set = append(set, "params = ?")
		args = append(args, merged)
	}

	if len(set) == 0 {
		return existing, nil
	}

	set = append(set, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, id)

	query := "UPDATE jobs SET " + joinComma(set) + " WHERE id = ?"
	if _, err := r.mgr.DB().ExecContext(ctx, query, args...); err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to update job", err)
	}

	updated, err := r.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil && (*req.Status == types.JobStatusCompleted || *req.Status == types.JobStatusFailed) {
		r.captureUsage(ctx, updated)
		updated, err = r.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	return updated, nil
}

// captureUsage runs UsageTracker.captureJobUsage for a job that just
// transitioned into a terminal status. Per spec §5 Suspension points,
// capture failures are logged and swallowed rather than propagated: the
// status transition itself must never be rolled back because accounting
// failed.
func (r *JobRepository) captureUsage(ctx context.Context, job *types.Job) {
	if r.tracker == nil {
		return
	}
	cost, ok, err := r.tracker.CaptureJobUsage(ctx, job)
	if err != nil {
		r.logger.Warn("usage capture failed", "job_id", job.ID, "error", err)
		return
	}
	if !ok || cost == job.TotalCost {
		return
	}
	if _, err := r.mgr.DB().ExecContext(ctx, "UPDATE jobs SET total_cost = ? WHERE id = ?", cost, job.ID); err != nil {
		r.logger.Warn("failed to write back computed job cost", "job_id", job.ID, "error", err)
	}
}

// mergeJSON overlays each top-level key of patch onto base using
// tidwall/sjson, leaving keys patch doesn't mention untouched. Both
// params and metadata are opaque JSON documents per the spec's design
// note against reifying them into Go structs.
func mergeJSON(base, patch string) (string, error) {
	if !gjson.Valid(patch) {
		return "", fmt.Errorf("invalid JSON")
	}
	result := base
	if result == "" {
		result = "{}"
	}
	parsed := gjson.Parse(patch)
	var mergeErr error
	parsed.ForEach(func(key, value gjson.Result) bool {
		next, err := sjson.Set(result, key.String(), value.Value())
		if err != nil {
			mergeErr = err
			return false
		}
		result = next
		return true
	})
	if mergeErr != nil {
		return "", mergeErr
	}
	return result, nil
}

// DeleteJob removes a job. A soft delete (hard=false) stamps the job
// cancelled rather than removing the row, mirroring UpdateJob's I2
// terminal-status completed_at stamping; hard=true runs the actual
// DELETE, which cascades to artifacts and events via the schema's ON
// DELETE CASCADE foreign keys.
func (r *JobRepository) DeleteJob(ctx context.Context, id string, hard bool) error {
	if !hard {
		res, err := r.mgr.DB().ExecContext(ctx,
			"UPDATE jobs SET status = 'cancelled', completed_at = COALESCE(completed_at, ?) WHERE id = ?",
			time.Now().UTC(), id)
		if err != nil {
			return errs.NewDatabase(errs.CodeStatsFailed, "failed to soft-delete job", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return errs.NewNotFound(errs.CodeJobNotFound, "job "+id+" not found")
		}
		return nil
	}

	res, err := r.mgr.DB().ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return errs.NewDatabase(errs.CodeStatsFailed, "failed to delete job", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.NewNotFound(errs.CodeJobNotFound, "job "+id+" not found")
	}
	return nil
}

// QueryJobs compiles filter into a parameterized WHERE clause, applies
// sort and keyset pagination, and returns a Page. Grounded on the
// teacher's cursor style for issue listings: opaque base64(JSON) cursor
// carrying the sort column's value plus the row id as a tiebreaker.
func (r *JobRepository) QueryJobs(ctx context.Context, filter types.JobFilter, sort types.JobSort, page types.Pagination) (types.Page[*types.Job], error) {
	limit := clampLimit(page.Limit)
	sortCol := resolveJobSortColumn(sort.Column)

	b := &sqlBuilder{}
	applyJobFilter(b, filter)

	if page.Cursor != "" {
		cur, err := decodeCursor(page.Cursor)
		if err != nil {
			return types.Page[*types.Job]{}, err
		}
		op := ">"
		if sort.Direction == types.SortDesc {
			op = "<"
		}
		b.add(fmt.Sprintf("(%s, id) %s (?, ?)", sortCol, op), cur.Value, cur.ID)
	}

	order := "ASC"
	if sort.Direction == types.SortDesc {
		order = "DESC"
	}

	query := fmt.Sprintf(
		"SELECT %s FROM jobs%s ORDER BY %s %s, id %s LIMIT ?",
		jobColumns, b.where(), sortCol, order, order,
	)
	args := append(append([]any{}, b.args...), limit+1)

	rows, err := r.mgr.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return types.Page[*types.Job]{}, errs.NewDatabase(errs.CodeStatsFailed, "failed to query jobs", err)
	}
	defer rows.Close()

	var items []*types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return types.Page[*types.Job]{}, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan job row", err)
		}
		items = append(items, job)
	}

	result := types.Page[*types.Job]{}
	if len(items) > limit {
		items = items[:limit]
		result.HasMore = true
	}
	result.Items = items
	if result.HasMore && len(items) > 0 {
		last := items[len(items)-1]
		result.NextCursor = encodeCursor(jobSortValue(last, sort.Column), last.ID)
	}
	return result, nil
}

// CountJobs applies the same filter as QueryJobs without sort/pagination.
func (r *JobRepository) CountJobs(ctx context.Context, filter types.JobFilter) (int64, error) {
	b := &sqlBuilder{}
	applyJobFilter(b, filter)
	query := "SELECT COUNT(*) FROM jobs" + b.where()
	var count int64
	if err := r.mgr.DB().QueryRowContext(ctx, query, b.args...).Scan(&count); err != nil {
		return 0, errs.NewDatabase(errs.CodeStatsFailed, "failed to count jobs", err)
	}
	return count, nil
}

func resolveJobSortColumn(col string) string {
	switch col {
	case "updated_at", "total_cost", "duration_ms", "title":
		return col
	default:
		return "created_at"
	}
}

func jobSortValue(j *types.Job, col string) string {
	switch col {
	case "updated_at":
		return j.UpdatedAt.Format(time.RFC3339Nano)
	case "total_cost":
		return fmt.Sprintf("%020.6f", j.TotalCost)
	case "duration_ms":
		if j.DurationMS != nil {
			return fmt.Sprintf("%020d", *j.DurationMS)
		}
		return "0"
	case "title":
		return j.Title
	default:
		return j.CreatedAt.Format(time.RFC3339Nano)
	}
}

func applyJobFilter(b *sqlBuilder, f types.JobFilter) {
	if f.Type != nil {
		b.add("type = ?", *f.Type)
	}
	if f.Status != nil {
		b.add("status = ?", *f.Status)
	}
	if f.Provider != nil {
		b.add("provider = ?", *f.Provider)
	}
	if f.Model != nil {
		b.add("model = ?", *f.Model)
	}
	if f.ParentJobID != nil {
		b.add("parent_job_id = ?", *f.ParentJobID)
	}
	if f.CreatedAfter != nil {
		b.add("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		b.add("created_at <= ?", *f.CreatedBefore)
	}
	if f.TitleContains != nil {
		b.add("title LIKE ? ESCAPE '\\'", "%"+escapeLike(*f.TitleContains)+"%")
	}
	if f.DurationMinMS != nil {
		b.add("duration_ms >= ?", *f.DurationMinMS)
	}
	if f.DurationMaxMS != nil {
		b.add("duration_ms <= ?", *f.DurationMaxMS)
	}
	if f.CostMin != nil {
		b.add("total_cost >= ?", *f.CostMin)
	}
	if f.CostMax != nil {
		b.add("total_cost <= ?", *f.CostMax)
	}
	if f.HasError != nil {
		if *f.HasError {
			b.add("error_message IS NOT NULL")
		} else {
			b.add("error_message IS NULL")
		}
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
