package sqlite

import (
	"context"
	"time"

	"github.com/andromedus24/ledgerstore/internal/errs"
	"github.com/andromedus24/ledgerstore/internal/types"
)

// RollupEngine aggregates finished jobs into per-day and per-week
// usage_stats rows, and prunes old rows/events. Grounded on spec §4.G's
// literal algorithm: group by (provider, model, type) over jobs whose
// status is completed or failed on the target date, success_rate =
// completed / total * 100.
type RollupEngine struct {
	mgr    *DatabaseManager
	usage  *UsageRepository
	events *EventRepository
}

// NewRollupEngine constructs a RollupEngine.
func NewRollupEngine(mgr *DatabaseManager, usage *UsageRepository, events *EventRepository) *RollupEngine {
	return &RollupEngine{mgr: mgr, usage: usage, events: events}
}

type rollupGroup struct {
	provider          string
	model             string
	jobType           types.JobType
	totalJobs         int64
	completedJobs     int64
	totalInputTokens  int64
	totalOutputTokens int64
	totalCost         float64
	totalDurationMS   float64
	durationSamples   int64
	currency          string
}

// PerformDailyRollup aggregates every completed/failed job whose
// created_at falls on date's calendar day into one usage_stats row per
// (provider, model, type), keyed "<date>_<provider>_<model>_<type>".
// Idempotent: running it twice for the same date yields identical rows.
func (e *RollupEngine) PerformDailyRollup(ctx context.Context, date time.Time) error {
	dayStr := date.UTC().Format("2006-01-02")
	start, end := dayBounds(date)
	return e.rollupRange(ctx, dayStr, "", start, end)
}

// PerformWeeklyRollup aggregates the seven days starting at weekStart (the
// scheduler passes the Sunday that opens a Sunday-through-Saturday week)
// into one usage_stats row per (provider, model, type),
// keyed "_weekly_<weekStart>_<provider>_<model>_<type>".
func (e *RollupEngine) PerformWeeklyRollup(ctx context.Context, weekStart time.Time) error {
	weekStr := weekStart.UTC().Format("2006-01-02")
	start, _ := dayBounds(weekStart)
	end := start.AddDate(0, 0, 7)
	return e.rollupRange(ctx, weekStr, "_weekly_", start, end)
}

func (e *RollupEngine) rollupRange(ctx context.Context, dateKey, keyPrefix string, start, end time.Time) error {
	rows, err := e.mgr.DB().QueryContext(ctx, `
		SELECT COALESCE(provider, ''), COALESCE(model, ''), type,
			COUNT(*),
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(total_cost), 0),
			COALESCE(SUM(CASE WHEN duration_ms IS NOT NULL THEN duration_ms ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN duration_ms IS NOT NULL THEN 1 ELSE 0 END), 0),
			currency
		FROM jobs
		WHERE created_at >= ? AND created_at < ? AND status IN ('completed', 'failed')
		GROUP BY provider, model, type, currency
	`, start, end)
	if err != nil {
		return errs.NewDatabase(errs.CodeStatsFailed, "failed to aggregate jobs for rollup", err)
	}
	defer rows.Close()

	var groups []rollupGroup
	for rows.Next() {
		var g rollupGroup
		if err := rows.Scan(&g.provider, &g.model, &g.jobType, &g.totalJobs, &g.completedJobs,
			&g.totalInputTokens, &g.totalOutputTokens, &g.totalCost, &g.totalDurationMS, &g.durationSamples, &g.currency); err != nil {
			return errs.NewDatabase(errs.CodeStatsFailed, "failed to scan rollup group", err)
		}
		groups = append(groups, g)
	}
	rows.Close()

	for _, g := range groups {
		avgDuration := float64(0)
		if g.durationSamples > 0 {
			avgDuration = g.totalDurationMS / float64(g.durationSamples)
		}
		successRate := float64(0)
		if g.totalJobs > 0 {
			successRate = float64(g.completedJobs) / float64(g.totalJobs) * 100
		}

		id := keyPrefix + dateKey + "_" + g.provider + "_" + g.model + "_" + string(g.jobType)
		row := types.UsageStats{
			ID:                id,
			Date:              dateKey,
			Provider:          g.provider,
			Model:             g.model,
			JobType:           g.jobType,
			TotalJobs:         g.totalJobs,
			TotalInputTokens:  g.totalInputTokens,
			TotalOutputTokens: g.totalOutputTokens,
			TotalCost:         g.totalCost,
			AverageDurationMS: avgDuration,
			SuccessRate:       successRate,
			Currency:          g.currency,
		}
		if err := e.usage.UpsertUsageStats(ctx, row); err != nil {
			return err
		}
	}

	return nil
}

// CleanupOldStats prunes usage_stats rows and job_events rows older than
// the configured retention windows.
func (e *RollupEngine) CleanupOldStats(ctx context.Context, statsRetentionDays, eventRetentionDays int) error {
	if _, err := e.usage.CleanupOldStats(ctx, statsRetentionDays); err != nil {
		return err
	}
	if _, err := e.events.CleanupOldEvents(ctx, eventRetentionDays); err != nil {
		return err
	}
	return nil
}

func dayBounds(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 0, 1)
	return start, end
}
