package types

import "time"

// CostRate is a time-versioned per-1000-token price for a (provider, model)
// pair. At most one rate is effective for any (provider, model, date).
type CostRate struct {
	ID              string
	Provider        string
	Model           string
	InputTokenRate  float64 // USD per 1000 input tokens
	OutputTokenRate float64 // USD per 1000 output tokens
	Currency        string
	EffectiveFrom   time.Time
	EffectiveTo     *time.Time
}

// CreateCostRateRequest is the input contract for CostRateRepository.CreateCostRate.
type CreateCostRateRequest struct {
	ID              string
	Provider        string
	Model           string
	InputTokenRate  float64
	OutputTokenRate float64
	Currency        string
	EffectiveFrom   time.Time
	EffectiveTo     *time.Time
}

// CostRateFilter narrows CostRateRepository.GetCostRates.
type CostRateFilter struct {
	Provider *string
	Model    *string
	OnDate   *time.Time
}

// UsageStats is one rolled-up or single-job row in usage_stats, keyed by
// the composite ID "<date>_<provider>_<model>_<jobType>" (weekly rows
// prefix the date with "_weekly_").
type UsageStats struct {
	ID                string
	Date              string // YYYY-MM-DD, or a week-start date for weekly rows
	Provider          string
	Model             string
	JobType           JobType
	TotalJobs         int64
	TotalInputTokens  int64
	TotalOutputTokens int64
	TotalCost         float64
	AverageDurationMS float64
	SuccessRate       float64 // 0-100
	Currency          string
}

// UsageFilter narrows UsageRepository.GetUsageStats.
type UsageFilter struct {
	Provider     *string
	Model        *string
	JobType      *JobType
	CreatedAfter *time.Time
	CreatedBefore *time.Time
}

// CostBreakdownEntry is one row of UsageRepository.GetCostBreakdown, ordered
// by TotalCost descending.
type CostBreakdownEntry struct {
	Provider  string
	Model     string
	TotalCost float64
	TotalJobs int64
	Currency  string
}

// DashboardStats is the aggregate projection served by
// UsageRepository.GetDashboardStats.
type DashboardStats struct {
	TotalJobs         int64
	CompletedJobs     int64
	FailedJobs        int64
	TotalCost         float64
	TotalInputTokens  int64
	TotalOutputTokens int64
	AverageDurationMS float64
	JobsByType        map[JobType]int64
	JobsByStatus      map[JobStatus]int64
	CostByProvider    map[string]float64
	RecentActivity    []TimelineEntry
}

// TrendBucket is one point of UsageRepository.GetUsageTrends, grouped by
// calendar day or ISO week.
type TrendBucket struct {
	Bucket       string // "YYYY-MM-DD" or "YYYY-Www"
	TotalJobs    int64
	TotalCost    float64
	TotalTokens  int64
}

// TrendGroupBy selects the GetUsageTrends bucketing strategy.
type TrendGroupBy string

const (
	TrendByDay  TrendGroupBy = "day"
	TrendByWeek TrendGroupBy = "week"
)
