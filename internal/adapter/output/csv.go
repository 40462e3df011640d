// Package output writes finished report tables: one CSV per section into a
// directory, and optionally every section as a sheet of one XLSX workbook.
package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

// Header returns the column header of every report table.
func Header() []string {
	header := []string{domain.YearColumn}
	for _, c := range domain.Categories {
		header = append(header, c.Column())
	}
	return header
}

// FormatRow renders a row as CSV cells. Missing values become empty cells.
func FormatRow(row domain.SeriesRow) []string {
	cells := make([]string, 0, domain.NumCategories+1)
	cells = append(cells, strconv.Itoa(row.Year))
	for _, cell := range row.Cells {
		if cell.Valid {
			cells = append(cells, strconv.FormatInt(cell.Value, 10))
		} else {
			cells = append(cells, "")
		}
	}
	return cells
}

// CSVWriter writes each table to <dir>/<Region>_<n|p>.csv.
// It implements pipeline.Sink.
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates dir if needed.
func NewCSVWriter(dir string) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &CSVWriter{dir: dir}, nil
}

// WriteTable writes the table to a temporary file and renames it into place,
// so a failed write never leaves a truncated table behind.
func (w *CSVWriter) WriteTable(ctx context.Context, t domain.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(w.dir, t.Section.FileName())
	tmp, err := os.CreateTemp(w.dir, ".tmp-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	cw := csv.NewWriter(tmp)
	if err := cw.Write(Header()); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(FormatRow(row)); err != nil {
			tmp.Close()
			return fmt.Errorf("write row %d: %w", row.Year, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
