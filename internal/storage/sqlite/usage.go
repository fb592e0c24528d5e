package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andromedus24/ledgerstore/internal/errs"
	"github.com/andromedus24/ledgerstore/internal/types"
)

// UsageRepository implements storage.UsageStore. Reads that aggregate
// across the whole jobs table (dashboard stats, trends, cost breakdown)
// go through a short-lived cache so a busy dashboard polling every few
// seconds doesn't re-scan the table on every tick; writes invalidate the
// cache unconditionally rather than trying to patch it incrementally.
type UsageRepository struct {
	mgr   *DatabaseManager
	cache *aggregateCache
}

// NewUsageRepository constructs a UsageRepository.
func NewUsageRepository(mgr *DatabaseManager) *UsageRepository {
	return &UsageRepository{mgr: mgr, cache: newAggregateCache()}
}

// Invalidate clears the aggregate cache. The Facade calls it after each
// rollup and after Restore; job create/update do not call it.
func (r *UsageRepository) Invalidate() {
	r.cache.invalidate()
}

// UpsertUsageStats writes or replaces one usage_stats row, keyed by its ID
// (the rollup job computes IDs as "<date>_<provider>_<model>_<jobType>",
// prefixing weekly rows with "_weekly_").
func (r *UsageRepository) UpsertUsageStats(ctx context.Context, row types.UsageStats) error {
	id := row.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.mgr.DB().ExecContext(ctx, `
		INSERT INTO usage_stats (id, date, provider, model, job_type, total_jobs, total_input_tokens, total_output_tokens, total_cost, average_duration_ms, success_rate, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_jobs = excluded.total_jobs,
			total_input_tokens = excluded.total_input_tokens,
			total_output_tokens = excluded.total_output_tokens,
			total_cost = excluded.total_cost,
			average_duration_ms = excluded.average_duration_ms,
			success_rate = excluded.success_rate,
			currency = excluded.currency
	`, id, row.Date, row.Provider, row.Model, row.JobType, row.TotalJobs, row.TotalInputTokens,
		row.TotalOutputTokens, row.TotalCost, row.AverageDurationMS, row.SuccessRate, row.Currency)
	if err != nil {
		return errs.NewDatabase(errs.CodeStatsFailed, "failed to upsert usage stats", err)
	}
	r.cache.invalidate()
	return nil
}

// GetUsageStats returns rolled-up rows matching filter. Each row's Date is
// its own true grouping date from usage_stats, never overwritten by
// filter.CreatedAfter.
func (r *UsageRepository) GetUsageStats(ctx context.Context, filter types.UsageFilter) ([]types.UsageStats, error) {
	b := &sqlBuilder{}
	if filter.Provider != nil {
		b.add("provider = ?", *filter.Provider)
	}
	if filter.Model != nil {
		b.add("model = ?", *filter.Model)
	}
	if filter.JobType != nil {
		b.add("job_type = ?", *filter.JobType)
	}
	if filter.CreatedAfter != nil {
		b.add("date >= ?", filter.CreatedAfter.Format("2006-01-02"))
	}
	if filter.CreatedBefore != nil {
		b.add("date <= ?", filter.CreatedBefore.Format("2006-01-02"))
	}

	query := `SELECT id, date, provider, model, job_type, total_jobs, total_input_tokens, total_output_tokens,
		total_cost, average_duration_ms, success_rate, currency FROM usage_stats` + b.where() + " ORDER BY date DESC"
	rows, err := r.mgr.DB().QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query usage stats", err)
	}
	defer rows.Close()

	var out []types.UsageStats
	for rows.Next() {
		var u types.UsageStats
		if err := rows.Scan(&u.ID, &u.Date, &u.Provider, &u.Model, &u.JobType, &u.TotalJobs, &u.TotalInputTokens,
			&u.TotalOutputTokens, &u.TotalCost, &u.AverageDurationMS, &u.SuccessRate, &u.Currency); err != nil {
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan usage stats row", err)
		}
		out = append(out, u)
	}
	return out, nil
}

// GetCostBreakdown aggregates total cost and job count per (provider,
// model) over the explicit [start, end) window, ordered by cost
// descending. The signature takes an explicit range rather than an
// implicit trailing-30-day default, resolving the Open Question in favor
// of making the window unambiguous to every caller.
func (r *UsageRepository) GetCostBreakdown(ctx context.Context, start, end time.Time, provider, model *string) ([]types.CostBreakdownEntry, error) {
	cacheKey := fmt.Sprintf("breakdown:%s:%s:%v:%v", start.Format(time.RFC3339), end.Format(time.RFC3339), provider, model)
	if cached, ok := r.cache.get(cacheKey); ok {
		return cached.([]types.CostBreakdownEntry), nil
	}

	b := &sqlBuilder{}
	b.add("created_at >= ?", start)
	b.add("created_at < ?", end)
	if provider != nil {
		b.add("provider = ?", *provider)
	}
	if model != nil {
		b.add("model = ?", *model)
	}

	query := `
		SELECT COALESCE(provider, ''), COALESCE(model, ''), SUM(total_cost), COUNT(*), currency
		FROM jobs` + b.where() + `
		GROUP BY provider, model, currency
		ORDER BY SUM(total_cost) DESC
	`
	rows, err := r.mgr.DB().QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query cost breakdown", err)
	}
	defer rows.Close()

	var out []types.CostBreakdownEntry
	for rows.Next() {
		var e types.CostBreakdownEntry
		if err := rows.Scan(&e.Provider, &e.Model, &e.TotalCost, &e.TotalJobs, &e.Currency); err != nil {
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan cost breakdown row", err)
		}
		out = append(out, e)
	}

	r.cache.set(cacheKey, out)
	return out, nil
}

// GetDashboardStats aggregates the last `days` days of jobs into a single
// DashboardStats projection, including the ten most recent timeline
// entries across all jobs.
func (r *UsageRepository) GetDashboardStats(ctx context.Context, days int) (*types.DashboardStats, error) {
	cacheKey := fmt.Sprintf("dashboard:%d", days)
	if cached, ok := r.cache.get(cacheKey); ok {
		stats := cached.(types.DashboardStats)
		return &stats, nil
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	stats := types.DashboardStats{
		JobsByType:     map[types.JobType]int64{},
		JobsByStatus:   map[types.JobStatus]int64{},
		CostByProvider: map[string]float64{},
	}

	row := r.mgr.DB().QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(total_cost), 0),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(AVG(duration_ms), 0)
		FROM jobs WHERE created_at >= ?
	`, since)
	if err := row.Scan(&stats.TotalJobs, &stats.CompletedJobs, &stats.FailedJobs, &stats.TotalCost,
		&stats.TotalInputTokens, &stats.TotalOutputTokens, &stats.AverageDurationMS); err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query dashboard totals", err)
	}

	typeRows, err := r.mgr.DB().QueryContext(ctx, "SELECT type, COUNT(*) FROM jobs WHERE created_at >= ? GROUP BY type", since)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query jobs by type", err)
	}
	for typeRows.Next() {
		var t types.JobType
		var n int64
		if err := typeRows.Scan(&t, &n); err != nil {
			typeRows.Close()
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan jobs-by-type row", err)
		}
		stats.JobsByType[t] = n
	}
	typeRows.Close()

	statusRows, err := r.mgr.DB().QueryContext(ctx, "SELECT status, COUNT(*) FROM jobs WHERE created_at >= ? GROUP BY status", since)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query jobs by status", err)
	}
	for statusRows.Next() {
		var s types.JobStatus
		var n int64
		if err := statusRows.Scan(&s, &n); err != nil {
			statusRows.Close()
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan jobs-by-status row", err)
		}
		stats.JobsByStatus[s] = n
	}
	statusRows.Close()

	providerRows, err := r.mgr.DB().QueryContext(ctx,
		"SELECT COALESCE(provider, 'unknown'), SUM(total_cost) FROM jobs WHERE created_at >= ? GROUP BY provider", since)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query cost by provider", err)
	}
	for providerRows.Next() {
		var p string
		var cost float64
		if err := providerRows.Scan(&p, &cost); err != nil {
			providerRows.Close()
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan cost-by-provider row", err)
		}
		stats.CostByProvider[p] = cost
	}
	providerRows.Close()

	activityRows, err := r.mgr.DB().QueryContext(ctx,
		"SELECT "+eventColumns+" FROM job_events ORDER BY created_at DESC, id DESC LIMIT 10")
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query recent activity", err)
	}
	for activityRows.Next() {
		e, err := scanEvent(activityRows)
		if err != nil {
			activityRows.Close()
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan recent activity row", err)
		}
		stats.RecentActivity = append(stats.RecentActivity, types.TimelineEntry{
			Timestamp: e.CreatedAt, Event: e.EventType, Message: e.Message, Level: e.Level, Data: e.Data,
		})
	}
	activityRows.Close()

	r.cache.set(cacheKey, stats)
	return &stats, nil
}

// GetUsageTrends buckets job counts, cost, and token totals over the last
// `days` days, grouped either by calendar day or ISO week.
func (r *UsageRepository) GetUsageTrends(ctx context.Context, days int, groupBy types.TrendGroupBy) ([]types.TrendBucket, error) {
	cacheKey := fmt.Sprintf("trends:%d:%s", days, groupBy)
	if cached, ok := r.cache.get(cacheKey); ok {
		return cached.([]types.TrendBucket), nil
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	bucketExpr := "strftime('%Y-%m-%d', created_at)"
	if groupBy == types.TrendByWeek {
		bucketExpr = "strftime('%G-W%V', created_at)"
	}

	query := fmt.Sprintf(`
		SELECT %s AS bucket, COUNT(*), COALESCE(SUM(total_cost), 0), COALESCE(SUM(input_tokens + output_tokens), 0)
		FROM jobs WHERE created_at >= ?
		GROUP BY bucket ORDER BY bucket ASC
	`, bucketExpr)

	rows, err := r.mgr.DB().QueryContext(ctx, query, since)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query usage trends", err)
	}
	defer rows.Close()

	var out []types.TrendBucket
	for rows.Next() {
		var t types.TrendBucket
		if err := rows.Scan(&t.Bucket, &t.TotalJobs, &t.TotalCost, &t.TotalTokens); err != nil {
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan trend bucket row", err)
		}
		out = append(out, t)
	}

	r.cache.set(cacheKey, out)
	return out, nil
}

// CleanupOldStats deletes usage_stats rows whose date is older than
// retentionDays.
func (r *UsageRepository) CleanupOldStats(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format("2006-01-02")
	res, err := r.mgr.DB().ExecContext(ctx, "DELETE FROM usage_stats WHERE date < ?", cutoff)
	if err != nil {
		return 0, errs.NewDatabase(errs.CodeStatsFailed, "failed to clean up old usage stats", err)
	}
	n, _ := res.RowsAffected()
	r.cache.invalidate()
	return n, nil
}
