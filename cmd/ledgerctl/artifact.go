package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/andromedus24/ledgerstore"
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Attach and inspect job artifacts",
}

var artifactAddCmd = &cobra.Command{
	Use:   "add <job-id> <file>",
	Short: "Store a file as an artifact of a job",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		artType, _ := cmd.Flags().GetString("type")
		name, _ := cmd.Flags().GetString("name")

		data, err := os.ReadFile(args[1])
		if err != nil {
			fail(err)
		}
		if name == "" {
			name = args[1]
		}

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		artifact, err := store.Artifacts.CreateArtifact(ctx, ledgerstore.CreateArtifactRequest{
			JobID:    args[0],
			Type:     ledgerstore.ArtifactType(artType),
			Name:     name,
			Data:     data,
			Metadata: "{}",
		})
		if err != nil {
			fail(err)
		}
		if err := printResult(artifact); err != nil {
			fail(err)
		}
	},
}

var artifactListCmd = &cobra.Command{
	Use:   "list <job-id>",
	Short: "List artifacts for a job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		artifacts, err := store.Artifacts.GetArtifactsByJob(ctx, args[0])
		if err != nil {
			fail(err)
		}
		if err := printResult(artifacts); err != nil {
			fail(err)
		}
	},
}

var artifactStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage-wide artifact counts and size",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		stats, err := store.GetArtifactStats(ctx)
		if err != nil {
			fail(err)
		}
		if err := printResult(stats); err != nil {
			fail(err)
		}
	},
}

var artifactSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search artifacts by name",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		page, err := store.SearchArtifacts(ctx, args[0], ledgerstore.Pagination{Limit: limit})
		if err != nil {
			fail(err)
		}
		if err := printResult(page); err != nil {
			fail(err)
		}
	},
}

var artifactCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Hard-delete soft-deleted artifacts past the configured retention window",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		removed, err := store.CleanupOldArtifacts(ctx)
		if err != nil {
			fail(err)
		}
		if err := printResult(map[string]int{"removed": removed}); err != nil {
			fail(err)
		}
	},
}

var artifactVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check every non-deleted artifact against its blob on disk",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		issues, err := store.VerifyArtifactIntegrity(ctx)
		if err != nil {
			fail(err)
		}
		if err := printResult(issues); err != nil {
			fail(err)
		}
	},
}

func init() {
	artifactAddCmd.Flags().String("type", string(ledgerstore.ArtifactTypeFile), "artifact type")
	artifactAddCmd.Flags().String("name", "", "artifact display name, defaults to the source file path")

	artifactSearchCmd.Flags().Int("limit", 50, "maximum results to return")

	artifactCmd.AddCommand(artifactAddCmd, artifactListCmd, artifactStatsCmd, artifactSearchCmd, artifactCleanupCmd, artifactVerifyCmd)
	rootCmd.AddCommand(artifactCmd)
}
