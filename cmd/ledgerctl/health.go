package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity, integrity, and scheduler state",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		status := store.HealthCheck(ctx)
		if err := printResult(status); err != nil {
			fail(err)
		}
		if !status.Healthy {
			fmt.Println()
			fail(fmt.Errorf("store is unhealthy: %s", status.Detail))
		}
	},
}

var vacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Reclaim free space and defragment the database file",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		if err := store.Vacuum(ctx); err != nil {
			fail(err)
		}
		fmt.Println("vacuum complete")
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup <path>",
	Short: "Write an atomic database snapshot to path",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		if err := store.Backup(ctx, args[0]); err != nil {
			fail(err)
		}
		fmt.Println("backup written to", args[0])
	},
}

func init() {
	rootCmd.AddCommand(healthCmd, vacuumCmd, backupCmd)
}
