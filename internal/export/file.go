// Package export writes rendered reports to the local filesystem.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ledger/internal/report"
	"ledger/internal/sheets"
)

// TargetName is how export jobs refer to the file writer.
const TargetName = "file"

var _ sheets.ReportWriter = (*FileWriter)(nil)

// FileWriter writes each report as CSV under a fixed filename in dir,
// replacing the previous export of the same report.
type FileWriter struct {
	dir string
}

func NewFileWriter(dir string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &FileWriter{dir: dir}, nil
}

func (w *FileWriter) Name() string { return TargetName }

// WriteReport writes through a temporary file so readers never see a
// partial export.
func (w *FileWriter) WriteReport(ctx context.Context, t report.Table) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, filepath.Base(t.Name))

	tmp, err := os.CreateTemp(w.dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := report.WriteCSV(tmp, t); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move export into place: %w", err)
	}

	slog.InfoContext(ctx, "Report written to file", "path", path, "rows", len(t.Rows))
	return path, nil
}
