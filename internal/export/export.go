// Package export implements the Exporter collaborator: it writes a
// reconciled UnifiedTable to disk as CSV (the analysis-ready artifact)
// or JSON.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"health-data-pipeline/internal/model"
)

// FileExporter writes one output file per dataset under a base
// directory. Format is "csv" or "json".
type FileExporter struct {
	Dir    string
	Format string
}

// NewFileExporter creates an exporter writing into dir.
func NewFileExporter(dir, format string) *FileExporter {
	if format == "" {
		format = "csv"
	}
	return &FileExporter{Dir: dir, Format: format}
}

// Export writes the table to <dir>/<dataset>.<format>. Any failure is
// an ExportError, fatal for the dataset's run.
func (e *FileExporter) Export(ctx context.Context, dataset string, table *model.UnifiedTable) error {
	if err := ctx.Err(); err != nil {
		return &model.ExportError{Dataset: dataset, Err: err}
	}

	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return &model.ExportError{Dataset: dataset, Path: e.Dir, Err: fmt.Errorf("failed to create directory: %w", err)}
	}

	path := filepath.Join(e.Dir, dataset+"."+e.Format)
	file, err := os.Create(path)
	if err != nil {
		return &model.ExportError{Dataset: dataset, Path: path, Err: fmt.Errorf("failed to create file: %w", err)}
	}
	defer file.Close()

	switch e.Format {
	case "csv":
		err = table.WriteCSV(file)
	case "json":
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(table)
	default:
		err = fmt.Errorf("unknown export format: %s", e.Format)
	}
	if err != nil {
		return &model.ExportError{Dataset: dataset, Path: path, Err: err}
	}

	fmt.Printf("💾 Exported %d rows to %s\n", len(table.Rows), path)
	return nil
}
