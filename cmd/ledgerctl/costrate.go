package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andromedus24/ledgerstore"
)

var costRateCmd = &cobra.Command{
	Use:   "cost-rate",
	Short: "Manage per-provider/model token pricing",
}

var costRateSetCmd = &cobra.Command{
	Use:   "set <provider> <model> <input-rate> <output-rate>",
	Short: "Add a new effective cost rate for a provider/model pair",
	Long: `Add a new effective cost rate for a provider/model pair.

Rates are time-versioned: the new rate is effective from the moment it
is added, and adding it does not close out any existing open rate row.`,
	Args: cobra.ExactArgs(4),
	Run: func(cmd *cobra.Command, args []string) {
		currency, _ := cmd.Flags().GetString("currency")

		inputRate, err := parseFloatArg(args[2])
		if err != nil {
			fail(err)
		}
		outputRate, err := parseFloatArg(args[3])
		if err != nil {
			fail(err)
		}

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		rate, err := store.CostRates.CreateCostRate(ctx, ledgerstore.CreateCostRateRequest{
			Provider:        args[0],
			Model:           args[1],
			InputTokenRate:  inputRate,
			OutputTokenRate: outputRate,
			Currency:        currency,
			EffectiveFrom:   time.Now(),
		})
		if err != nil {
			fail(err)
		}
		if err := printResult(rate); err != nil {
			fail(err)
		}
	},
}

var costRateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cost rates, optionally filtered by provider/model",
	Run: func(cmd *cobra.Command, args []string) {
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		var filter ledgerstore.CostRateFilter
		if provider != "" {
			filter.Provider = &provider
		}
		if model != "" {
			filter.Model = &model
		}

		rates, err := store.CostRates.GetCostRates(ctx, filter)
		if err != nil {
			fail(err)
		}
		if err := printResult(rates); err != nil {
			fail(err)
		}
	},
}

func parseFloatArg(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscan(s, &f)
	return f, err
}

func init() {
	costRateSetCmd.Flags().String("currency", "USD", "currency code for this rate")
	costRateListCmd.Flags().String("provider", "", "filter by provider")
	costRateListCmd.Flags().String("model", "", "filter by model")

	costRateCmd.AddCommand(costRateSetCmd, costRateListCmd)
	rootCmd.AddCommand(costRateCmd)
}
