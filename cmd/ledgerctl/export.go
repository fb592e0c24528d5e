package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/andromedus24/ledgerstore"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump every accounting table as JSON or CSV",
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")

		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			fail(err)
		}
		defer store.Close()

		out := os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				fail(err)
			}
			defer f.Close()
			out = f
		}

		if err := store.Export(ctx, out, ledgerstore.ExportFormat(format)); err != nil {
			fail(err)
		}
	},
}

func init() {
	exportCmd.Flags().String("format", string(ledgerstore.ExportFormatJSON), "export format: json or csv")
	exportCmd.Flags().String("out", "", "output file path (defaults to stdout)")
	rootCmd.AddCommand(exportCmd)
}
