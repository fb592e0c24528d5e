package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andromedus24/ledgerstore"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Create, update, and query jobs",
}

var jobCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new job",
	Run: func(cmd *cobra.Command, args []string) {
		jobType, _ := cmd.Flags().GetString("type")
		title, _ := cmd.Flags().GetString("title")
		desc, _ := cmd.Flags().GetString("description")
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		req := ledgerstore.CreateJobRequest{
			Type:        ledgerstore.JobType(jobType),
			Title:       title,
			Description: desc,
			Params:      "{}",
			Metadata:    "{}",
		}
		if provider != "" {
			req.Provider = &provider
		}
		if model != "" {
			req.Model = &model
		}

		job, err := store.Jobs.CreateJob(ctx, req)
		if err != nil {
			fail(err)
		}
		if err := printResult(job); err != nil {
			fail(err)
		}
	},
}

var jobGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a job by ID",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		job, err := store.Jobs.GetJob(ctx, args[0])
		if err != nil {
			fail(err)
		}
		if err := printResult(job); err != nil {
			fail(err)
		}
	},
}

var jobUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a job's status and/or usage fields",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		inputTokens, _ := cmd.Flags().GetInt64("input-tokens")
		outputTokens, _ := cmd.Flags().GetInt64("output-tokens")
		errMsg, _ := cmd.Flags().GetString("error")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		var req ledgerstore.UpdateJobRequest
		if status != "" {
			s := ledgerstore.JobStatus(status)
			req.Status = &s
		}
		if inputTokens > 0 {
			req.InputTokens = &inputTokens
		}
		if outputTokens > 0 {
			req.OutputTokens = &outputTokens
		}
		if errMsg != "" {
			req.ErrorMessage = &errMsg
		}

		job, err := store.Jobs.UpdateJob(ctx, args[0], req)
		if err != nil {
			fail(err)
		}
		if err := printResult(job); err != nil {
			fail(err)
		}
	},
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "Query jobs with filters",
	Run: func(cmd *cobra.Command, args []string) {
		jobType, _ := cmd.Flags().GetString("type")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		cursor, _ := cmd.Flags().GetString("cursor")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		var filter ledgerstore.JobFilter
		if jobType != "" {
			t := ledgerstore.JobType(jobType)
			filter.Type = &t
		}
		if status != "" {
			s := ledgerstore.JobStatus(status)
			filter.Status = &s
		}

		page, err := store.Jobs.QueryJobs(ctx, filter, ledgerstore.DefaultJobSort, ledgerstore.Pagination{
			Limit:  limit,
			Cursor: cursor,
		})
		if err != nil {
			fail(err)
		}
		if err := printResult(page); err != nil {
			fail(err)
		}
	},
}

func init() {
	jobCreateCmd.Flags().String("type", string(ledgerstore.JobTypeChat), "job type")
	jobCreateCmd.Flags().String("title", "", "job title")
	jobCreateCmd.Flags().String("description", "", "job description")
	jobCreateCmd.Flags().String("provider", "", "AI provider, e.g. openai")
	jobCreateCmd.Flags().String("model", "", "model name, e.g. gpt-4o")

	jobUpdateCmd.Flags().String("status", "", "new status (pending|running|completed|failed|cancelled)")
	jobUpdateCmd.Flags().Int64("input-tokens", 0, "input token count")
	jobUpdateCmd.Flags().Int64("output-tokens", 0, "output token count")
	jobUpdateCmd.Flags().String("error", "", "error message on failure")

	jobListCmd.Flags().String("type", "", "filter by job type")
	jobListCmd.Flags().String("status", "", "filter by job status")
	jobListCmd.Flags().Int("limit", 50, "page size, capped at 1000")
	jobListCmd.Flags().String("cursor", "", "opaque pagination cursor from a previous page")

	jobCmd.AddCommand(jobCreateCmd, jobGetCmd, jobUpdateCmd, jobListCmd)
	rootCmd.AddCommand(jobCmd)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "ledgerctl:", err)
	os.Exit(1)
}
