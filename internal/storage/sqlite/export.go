package sqlite

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/andromedus24/ledgerstore/internal/errs"
)

// ExportFormat selects exportData's output encoding.
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
)

// Exporter dumps the full contents of every accounting table to w.
// Grounded on the teacher's internal/export package: a sectioned
// table-by-table output, though without that package's Config/ErrorPolicy
// retry plumbing, which has no counterpart in this spec's export.
type Exporter struct {
	mgr *DatabaseManager
}

// NewExporter constructs an Exporter.
func NewExporter(mgr *DatabaseManager) *Exporter {
	return &Exporter{mgr: mgr}
}

var exportTables = []string{"jobs", "job_artifacts", "job_events", "cost_rates", "usage_stats"}

// Export writes every table in exportTables to w in the requested format.
func (e *Exporter) Export(ctx context.Context, w io.Writer, format ExportFormat) error {
	switch format {
	case ExportFormatJSON:
		return e.exportJSON(ctx, w)
	case ExportFormatCSV:
		return e.exportCSV(ctx, w)
	default:
		return errs.NewValidation(errs.CodeInvalidExportFormat, "unknown export format: "+string(format))
	}
}

func (e *Exporter) exportJSON(ctx context.Context, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	out := make(map[string][]map[string]any, len(exportTables))
	for _, table := range exportTables {
		rows, err := e.dumpTable(ctx, table)
		if err != nil {
			return err
		}
		out[table] = rows
	}
	if err := enc.Encode(out); err != nil {
		return errs.NewDatabase(errs.CodeStatsFailed, "failed to encode export as JSON", err)
	}
	return nil
}

func (e *Exporter) exportCSV(ctx context.Context, w io.Writer) error {
	for _, table := range exportTables {
		fmt.Fprintf(w, "=== %s ===\n", table)

		rows, err := e.dumpTable(ctx, table)
		if err != nil {
			return err
		}

		writer := csv.NewWriter(w)
		if len(rows) > 0 {
			header := columnOrder(rows[0])
			if err := writer.Write(header); err != nil {
				return errs.NewDatabase(errs.CodeStatsFailed, "failed to write CSV header", err)
			}
			for _, row := range rows {
				record := make([]string, len(header))
				for i, col := range header {
					record[i] = fmt.Sprintf("%v", row[col])
				}
				if err := writer.Write(record); err != nil {
					return errs.NewDatabase(errs.CodeStatsFailed, "failed to write CSV row", err)
				}
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return errs.NewDatabase(errs.CodeStatsFailed, "failed to flush CSV writer", err)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func (e *Exporter) dumpTable(ctx context.Context, table string) ([]map[string]any, error) {
	rows, err := e.mgr.DB().QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to query table "+table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to read columns for table "+table, err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errs.NewDatabase(errs.CodeStatsFailed, "failed to scan row for table "+table, err)
		}
		record := make(map[string]any, len(cols))
		for i, col := range cols {
			record[col] = values[i]
		}
		record["__order__"] = cols
		out = append(out, record)
	}
	return out, nil
}

func columnOrder(row map[string]any) []string {
	cols, _ := row["__order__"].([]string)
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != "__order__" {
			out = append(out, c)
		}
	}
	return out
}
