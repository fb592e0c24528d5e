// Command ledgerctl is a non-interactive, scriptable CLI over the job
// ledger: create and inspect jobs, attach artifacts, query usage stats,
// export data, trigger rollups, and check store health. Grounded on the
// teacher's cmd/bd command layout: one cobra.Command per subcommand file,
// each registering itself with rootCmd from its own init().
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagJSON    bool
	flagDBPath  string
	flagArtPath string
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Query and administer a ledgerstore job-accounting database",
	Long: `ledgerctl is a command-line interface to ledgerstore, a job-accounting
and artifact store for a local AI workstation: jobs, artifacts, events,
usage/cost tracking, and scheduled rollups.

ledgerctl is non-interactive and scriptable: commands that print a record
or list (job, artifact, usage, cost-rate, health, init) emit it as JSON
under --json, while vacuum, backup, rollup-trigger and export ignore the
flag. Every subcommand exits non-zero on failure.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "path to the ledgerstore database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagArtPath, "artifacts", "", "path to the artifact storage root (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		os.Exit(1)
	}
}
