package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/andromedus24/ledgerstore"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect cost and usage aggregates",
}

var usageDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show dashboard-style aggregate stats over the trailing N days",
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		stats, err := store.Usage.GetDashboardStats(ctx, days)
		if err != nil {
			fail(err)
		}
		if err := printResult(stats); err != nil {
			fail(err)
		}
	},
}

var usageBreakdownCmd = &cobra.Command{
	Use:   "breakdown",
	Short: "Show cost broken down by provider and model over a date range",
	Run: func(cmd *cobra.Command, args []string) {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		now := time.Now()
		start, err := parseDateFlag(from, now.AddDate(0, 0, -30))
		if err != nil {
			fail(err)
		}
		end, err := parseDateFlag(to, now)
		if err != nil {
			fail(err)
		}

		var providerPtr, modelPtr *string
		if provider != "" {
			providerPtr = &provider
		}
		if model != "" {
			modelPtr = &model
		}

		entries, err := store.Usage.GetCostBreakdown(ctx, start, end, providerPtr, modelPtr)
		if err != nil {
			fail(err)
		}
		if err := printResult(entries); err != nil {
			fail(err)
		}
	},
}

var usageTrendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show job count and cost trends bucketed by day or week",
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")
		groupBy, _ := cmd.Flags().GetString("group-by")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		buckets, err := store.Usage.GetUsageTrends(ctx, days, ledgerstore.TrendGroupBy(groupBy))
		if err != nil {
			fail(err)
		}
		if err := printResult(buckets); err != nil {
			fail(err)
		}
	},
}

func parseDateFlag(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	return time.Parse("2006-01-02", s)
}

func init() {
	usageDashboardCmd.Flags().Int("days", 30, "trailing window size in days")

	usageBreakdownCmd.Flags().String("from", "", "range start, YYYY-MM-DD (defaults to 30 days ago)")
	usageBreakdownCmd.Flags().String("to", "", "range end, YYYY-MM-DD (defaults to today)")
	usageBreakdownCmd.Flags().String("provider", "", "filter to a single provider")
	usageBreakdownCmd.Flags().String("model", "", "filter to a single model")

	usageTrendsCmd.Flags().Int("days", 30, "trailing window size in days")
	usageTrendsCmd.Flags().String("group-by", string(ledgerstore.TrendByDay), "bucket size: day or week")

	usageCmd.AddCommand(usageDashboardCmd, usageBreakdownCmd, usageTrendsCmd)
	rootCmd.AddCommand(usageCmd)
}
