package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and artifact storage directory, applying migrations",
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
		fmt.Println("ledgerstore initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
