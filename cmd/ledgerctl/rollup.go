package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var rollupCmd = &cobra.Command{
	Use:   "rollup-trigger",
	Short: "Manually run a daily or weekly rollup, bypassing the scheduler's timer",
	Run: func(cmd *cobra.Command, args []string) {
		dateStr, _ := cmd.Flags().GetString("date")
		weekly, _ := cmd.Flags().GetBool("weekly")

		target := time.Now().AddDate(0, 0, -1)
		if dateStr != "" {
			parsed, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				fail(err)
			}
			target = parsed
		}

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		if weekly {
			if err := store.TriggerWeeklyRollup(ctx, target); err != nil {
				fail(err)
			}
			fmt.Println("weekly rollup complete for week starting", target.Format("2006-01-02"))
			return
		}

		if err := store.TriggerDailyRollup(ctx, target); err != nil {
			fail(err)
		}
		fmt.Println("daily rollup complete for", target.Format("2006-01-02"))
	},
}

func init() {
	rollupCmd.Flags().String("date", "", "date to roll up, YYYY-MM-DD (defaults to yesterday)")
	rollupCmd.Flags().Bool("weekly", false, "run the weekly rollup instead of the daily one")
	rootCmd.AddCommand(rollupCmd)
}
