// Package usage computes and records the token-cost accounting for a
// completed job. It depends only on narrow interfaces implemented by the
// sqlite repositories, the same seam the teacher draws between
// internal/export and a minimal ConfigStore interface rather than the
// full storage.Storage surface — avoiding an import cycle with
// internal/storage/sqlite, which calls Tracker.CaptureJobUsage from its
// own UpdateJob.
package usage

import (
	"context"

	"github.com/andromedus24/ledgerstore/internal/types"
)

// CostRateLookup is the read surface Tracker needs from CostRateRepository.
type CostRateLookup interface {
	GetCurrentCostRate(ctx context.Context, provider, model string) (*types.CostRate, error)
}

// UsageUpserter is the write surface Tracker needs from UsageRepository.
type UsageUpserter interface {
	UpsertUsageStats(ctx context.Context, row types.UsageStats) error
}

// Tracker computes a job's cost from its token counts and the currently
// effective CostRate, then folds the result into that day's usage_stats
// row for the job's (provider, model, type).
type Tracker struct {
	rates CostRateLookup
	usage UsageUpserter
}

// New constructs a Tracker.
func New(rates CostRateLookup, usage UsageUpserter) *Tracker {
	return &Tracker{rates: rates, usage: usage}
}

// CaptureJobUsage is a no-op unless job.Status is completed or failed. If
// both token counts are strictly greater than zero and a cost rate exists for
// (provider, model), it computes the job's cost and returns it so the
// caller (JobRepository.UpdateJob) can write it back onto the job row
// when it differs from the value already there. It then upserts the
// per-day usage_stats row keyed "<date>_<provider>_<model>_<type>" with
// total_jobs=1 for this single job; a later rollup supersedes this row
// with the aggregated values for the whole day, using the same id.
//
// ok reports whether a cost was computed at all — false means the caller
// should leave the job's total_cost untouched (no provider/model, no
// tokens, or no rate on file).
func (t *Tracker) CaptureJobUsage(ctx context.Context, job *types.Job) (cost float64, ok bool, err error) {
	if job.Status != types.JobStatusCompleted && job.Status != types.JobStatusFailed {
		return 0, false, nil
	}
	if job.Provider == nil || job.Model == nil {
		return 0, false, nil
	}
	if job.InputTokens <= 0 || job.OutputTokens <= 0 {
		return 0, false, nil
	}

	rate, err := t.rates.GetCurrentCostRate(ctx, *job.Provider, *job.Model)
	if err != nil {
		return 0, false, err
	}

	cost = ComputeCost(job.InputTokens, job.OutputTokens, rate.InputTokenRate, rate.OutputTokenRate)

	date := job.CreatedAt.UTC().Format("2006-01-02")
	success := float64(0)
	if job.Status == types.JobStatusCompleted {
		success = 100
	}

	var durationMS float64
	if job.DurationMS != nil {
		durationMS = float64(*job.DurationMS)
	}

	row := types.UsageStats{
		ID:                date + "_" + *job.Provider + "_" + *job.Model + "_" + string(job.Type),
		Date:              date,
		Provider:          *job.Provider,
		Model:             *job.Model,
		JobType:           job.Type,
		TotalJobs:         1,
		TotalInputTokens:  job.InputTokens,
		TotalOutputTokens: job.OutputTokens,
		TotalCost:         cost,
		AverageDurationMS: durationMS,
		SuccessRate:       success,
		Currency:          rate.Currency,
	}

	if err := t.usage.UpsertUsageStats(ctx, row); err != nil {
		return 0, false, err
	}
	return cost, true, nil
}
