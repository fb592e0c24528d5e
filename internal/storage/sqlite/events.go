package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andromedus24/ledgerstore/internal/errs"
	"github.com/andromedus24/ledgerstore/internal/types"
)

// EventRepository implements storage.EventStore. Grounded on the
// teacher's internal/storage/sqlite/events.go: AddComment/GetEvents style
// append-only writes plus a withTx helper for the batch path.
type EventRepository struct {
	mgr *DatabaseManager
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(mgr *DatabaseManager) *EventRepository {
	return &EventRepository{mgr: mgr}
}

const eventColumns = `id, job_id, event_type, message, level, data, metadata, created_at`

func scanEvent(row interface{ Scan(...any) error }) (*types.JobEvent, error) {
	var e types.JobEvent
	var message sql.NullString
	if err := row.Scan(&e.ID, &e.JobID, &e.EventType, &message, &e.Level, &e.Data, &e.Metadata, &e.CreatedAt); err != nil {
		return nil, err
	}
	if message.Valid {
		e.Message = &message.String
	}
	return &e, nil
}

// CreateEvent appends one event row.
func (r *EventRepository) CreateEvent(ctx context.Context, req types.CreateEventRequest) (*types.JobEvent, error) {
	if err := validateEventType(req.EventType); err != nil {
		return nil, err
	}
	level := req.Level
	if level == "" {
		level = types.LevelInfo
	}
	if err := validateEventLevel(level); err != nil {
		return nil, err
	}

	data := req.Data
	if data == "" {
		data = "{}"
	}
	metadata := req.Metadata
	if metadata == "" {
		metadata = "{}"
	}

	res, err := r.mgr.DB().ExecContext(ctx, `
		INSERT INTO job_events (job_id, event_type, message, level, data, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, req.JobID, req.EventType, req.Message, level, data, metadata, time.Now().UTC())
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeCreateEventFailed, "failed to insert event", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeCreateEventFailed, "failed to read inserted event id", err)
	}

	row := r.mgr.DB().QueryRowContext(ctx, "SELECT "+eventColumns+" FROM job_events WHERE id = ?", id)
	event, err := scanEvent(row)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to read back inserted event", err)
	}
	return event, nil
}

// CreateBatchEvents inserts reqs inside a single transaction, using the
// DatabaseManager's retry-on-busy wrapper. The batch is best-effort: a
// request that fails validation or whose insert fails counts toward
// failed and is skipped, and the remaining rows are still committed.
func (r *EventRepository) CreateBatchEvents(ctx context.Context, reqs []types.CreateEventRequest) (inserted int, failed int) {
	err := r.mgr.executeInTransaction(ctx, func(tx *sql.Tx) error {
		for _, req := range reqs {
			if err := validateEventType(req.EventType); err != nil {
				failed++
				continue
			}
			level := req.Level
			if level == "" {
				level = types.LevelInfo
			}
			data := req.Data
			if data == "" {
				data = "{}"
			}
			metadata := req.Metadata
			if metadata == "" {
				metadata = "{}"
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO job_events (job_id, event_type, message, level, data, metadata, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, req.JobID, req.EventType, req.Message, level, data, metadata, time.Now().UTC())
			if err != nil {
				failed++
				continue
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, len(reqs)
	}
	return inserted, failed
}

// QueryEvents compiles filter into SQL and paginates, sorted by
// created_at descending.
func (r *EventRepository) QueryEvents(ctx context.Context, filter types.EventFilter, page types.Pagination) (types.Page[*types.JobEvent], error) {
	limit := clampLimit(page.Limit)

	b := &sqlBuilder{}
	applyEventFilter(b, filter)

	if page.Cursor != "" {
		cur, err := decodeCursor(page.Cursor)
		if err != nil {
			return types.Page[*types.JobEvent]{}, err
		}
		b.add("(created_at, id) < (?, ?)", cur.Value, cur.ID)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM job_events%s ORDER BY created_at DESC, id DESC LIMIT ?",
		eventColumns, b.where(),
	)
	args := append(append([]any{}, b.args...), limit+1)

	rows, err := r.mgr.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return types.Page[*types.JobEvent]{}, errs.NewDatabase(errs.CodeStatsFailed, "failed to query events", err)
	}
	defer rows.Close()

	var items []*types.JobEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return types.Page[*types.JobEvent]{}, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan event row", err)
		}
		items = append(items, e)
	}

	result := types.Page[*types.JobEvent]{}
	if len(items) > limit {
		items = items[:limit]
		result.HasMore = true
	}
	result.Items = items
	if result.HasMore && len(items) > 0 {
		last := items[len(items)-1]
		result.NextCursor = encodeCursor(lastEventSortKey(last), fmt.Sprintf("%d", last.ID))
	}
	return result, nil
}

// lastEventSortKey renders created_at in the same RFC 3339 text form the
// driver stores, so the cursor predicate compares like with like.
func lastEventSortKey(e *types.JobEvent) string {
	return e.CreatedAt.Format(time.RFC3339Nano)
}

// GetEventsByJob returns up to limit events for a job, oldest first.
func (r *EventRepository) GetEventsByJob(ctx context.Context, jobID string, limit int) ([]*types.JobEvent, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	rows, err := r.mgr.DB().QueryContext(ctx,
		"SELECT "+eventColumns+" FROM job_events WHERE job_id = ? ORDER BY created_at ASC, id ASC LIMIT ?", jobID, limit)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query job events", err)
	}
	defer rows.Close()

	var items []*types.JobEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan event row", err)
		}
		items = append(items, e)
	}
	return items, nil
}

// GetJobTimeline returns every event for a job as oldest-first
// TimelineEntry projections, with no pagination limit.
func (r *EventRepository) GetJobTimeline(ctx context.Context, jobID string) ([]types.TimelineEntry, error) {
	rows, err := r.mgr.DB().QueryContext(ctx,
		"SELECT "+eventColumns+" FROM job_events WHERE job_id = ? ORDER BY created_at ASC, id ASC", jobID)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query job timeline", err)
	}
	defer rows.Close()

	var entries []types.TimelineEntry
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan timeline row", err)
		}
		entries = append(entries, types.TimelineEntry{
			Timestamp: e.CreatedAt,
			Event:     e.EventType,
			Message:   e.Message,
			Level:     e.Level,
			Data:      e.Data,
		})
	}
	return entries, nil
}

// CleanupOldEvents deletes events older than retentionDays, returning the
// count removed.
func (r *EventRepository) CleanupOldEvents(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res, err := r.mgr.DB().ExecContext(ctx, "DELETE FROM job_events WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, errs.NewDatabase(errs.CodeStatsFailed, "failed to clean up old events", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func applyEventFilter(b *sqlBuilder, f types.EventFilter) {
	if f.JobID != nil {
		b.add("job_id = ?", *f.JobID)
	}
	if f.EventType != nil {
		b.add("event_type = ?", *f.EventType)
	}
	if f.Level != nil {
		b.add("level = ?", *f.Level)
	}
	if f.CreatedAfter != nil {
		b.add("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		b.add("created_at <= ?", *f.CreatedBefore)
	}
}
