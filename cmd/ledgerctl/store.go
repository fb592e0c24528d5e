package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/andromedus24/ledgerstore"
	"github.com/andromedus24/ledgerstore/internal/logging"
)

// openStore loads configuration, applies any --db/--artifacts overrides,
// and opens a Store. Callers must Close() the returned Store.
func openStore(ctx context.Context) (*ledgerstore.Store, error) {
	cfg, err := ledgerstore.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagDBPath != "" {
		cfg.DatabasePath = flagDBPath
	}
	if flagArtPath != "" {
		cfg.ArtifactStoragePath = flagArtPath
	}

	logger := logging.New(cfg)
	return ledgerstore.Open(ctx, cfg, logger)
}

// printResult renders v as JSON when --json is set, otherwise falls back to
// a plain %+v dump. Subcommands that need richer plain-text formatting do
// their own printing and never call printResult.
func printResult(v any) error {
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Printf("%+v\n", v)
	return nil
}
