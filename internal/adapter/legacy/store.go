// Package legacy reads the hand-curated historic report tables: one CSV per
// report section plus an optional single-year baseline table indexed by
// section heading.
package legacy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

// Store is a directory of legacy tables. It implements domain.LegacySource.
type Store struct {
	dir      string
	baseline map[string]domain.LegacyTable
	logger   *slog.Logger
}

// NewStore opens the legacy tables in dir. When baselineFile is set it is
// read eagerly and must parse.
func NewStore(dir, baselineFile string, logger *slog.Logger) (*Store, error) {
	s := &Store{dir: dir, logger: logger}
	if baselineFile == "" {
		return s, nil
	}

	f, err := os.Open(baselineFile)
	if err != nil {
		return nil, fmt.Errorf("open baseline: %w", err)
	}
	defer f.Close()

	s.baseline, err = ReadBaseline(f)
	if err != nil {
		return nil, fmt.Errorf("read baseline %s: %w", baselineFile, err)
	}
	logger.Info("baseline table loaded", "path", baselineFile, "sections", len(s.baseline))
	return s, nil
}

// Table reads the legacy table for a section heading. A missing file is
// reported as not found rather than an error.
func (s *Store) Table(heading string) (domain.LegacyTable, bool, error) {
	name, err := domain.FileNameFromHeading(heading)
	if err != nil {
		return domain.LegacyTable{}, false, err
	}
	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.LegacyTable{}, false, nil
	}
	if err != nil {
		return domain.LegacyTable{}, false, err
	}
	defer f.Close()

	t, err := ReadTable(f, heading)
	if err != nil {
		return domain.LegacyTable{}, false, fmt.Errorf("%s: %w", path, err)
	}
	return t, true, nil
}

// Baseline returns the baseline rows recorded for heading.
func (s *Store) Baseline(heading string) (domain.LegacyTable, bool, error) {
	t, ok := s.baseline[heading]
	return t, ok, nil
}

// ReadTable parses one legacy table. Empty cells are left out of the row
// values.
func ReadTable(r io.Reader, heading string) (domain.LegacyTable, error) {
	header, rows, err := readAll(r)
	if err != nil {
		return domain.LegacyTable{}, err
	}
	yearIdx := columnIndex(header, domain.YearColumn)
	if yearIdx < 0 {
		return domain.LegacyTable{}, fmt.Errorf("%w: missing column %s", domain.ErrSchemaMismatch, domain.YearColumn)
	}

	t := domain.LegacyTable{Heading: heading, Columns: valueColumns(header, yearIdx, -1)}
	for i, row := range rows {
		lr, err := parseRow(header, row, yearIdx, -1)
		if err != nil {
			return domain.LegacyTable{}, fmt.Errorf("line %d: %w", i+2, err)
		}
		t.Rows = append(t.Rows, lr)
	}
	return t, nil
}

// ReadBaseline parses the single-year table whose section_name column holds
// section headings. Rows are grouped by heading.
func ReadBaseline(r io.Reader) (map[string]domain.LegacyTable, error) {
	header, rows, err := readAll(r)
	if err != nil {
		return nil, err
	}
	yearIdx := columnIndex(header, domain.YearColumn)
	sectionIdx := columnIndex(header, domain.SectionColumn)
	if yearIdx < 0 || sectionIdx < 0 {
		return nil, fmt.Errorf("%w: baseline needs columns %s and %s",
			domain.ErrSchemaMismatch, domain.SectionColumn, domain.YearColumn)
	}

	columns := valueColumns(header, yearIdx, sectionIdx)
	tables := make(map[string]domain.LegacyTable)
	for i, row := range rows {
		heading := strings.TrimSpace(row[sectionIdx])
		lr, err := parseRow(header, row, yearIdx, sectionIdx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		t, ok := tables[heading]
		if !ok {
			t = domain.LegacyTable{Heading: heading, Columns: columns}
		}
		t.Rows = append(t.Rows, lr)
		tables[heading] = t
	}
	return tables, nil
}

func readAll(r io.Reader) ([]string, [][]string, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrSchemaMismatch, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: empty table", domain.ErrSchemaMismatch)
	}
	return records[0], records[1:], nil
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if domain.NormalizeColumn(col) == name {
			return i
		}
	}
	return -1
}

// valueColumns returns the header without the year and section columns,
// keeping the original spelling for domain.LegacyRows to normalize.
func valueColumns(header []string, skip ...int) []string {
	var cols []string
	for i, col := range header {
		if !slices.Contains(skip, i) {
			cols = append(cols, strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		}
	}
	return cols
}

func parseRow(header, row []string, yearIdx, sectionIdx int) (domain.LegacyRow, error) {
	year, err := parseYear(row[yearIdx])
	if err != nil {
		return domain.LegacyRow{}, err
	}
	lr := domain.LegacyRow{Year: year, Values: make(map[string]float64)}
	for i, cell := range row {
		if i == yearIdx || i == sectionIdx {
			continue
		}
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return domain.LegacyRow{}, fmt.Errorf("%w: column %s: %q is not a number",
				domain.ErrSchemaMismatch, header[i], cell)
		}
		lr.Values[strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))] = v
	}
	return lr, nil
}

// parseYear accepts "1990" as well as "1990.0", which spreadsheet exports
// produce for integer columns.
func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if y, err := strconv.Atoi(s); err == nil {
		return y, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%w: invalid year %q", domain.ErrSchemaMismatch, s)
	}
	return int(f), nil
}
