// Command validate checks a report output directory: every table must carry
// the report header, one row per year in ascending order and integer cells.
// With -legacy-dir it also checks that every row at or before the cutoff is
// identical to the (rounded) legacy table.
//
// Usage:
//
//	go run ./cmd/validate -dir output
//	go run ./cmd/validate -dir output -legacy-dir data/mock/legacy \
//	  -baseline data/mock/legacy/baseline.csv -cutoff 1995
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/coastal-loads-etl/internal/adapter/legacy"
	"github.com/couchcryptid/coastal-loads-etl/internal/adapter/output"
	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	dir       string
	legacyDir string
	baseline  string
	cutoff    int
}

func main() {
	var o options
	flag.StringVar(&o.dir, "dir", "output", "report output directory")
	flag.StringVar(&o.legacyDir, "legacy-dir", "", "legacy tables to compare rows at or before -cutoff with")
	flag.StringVar(&o.baseline, "baseline", "", "single-year baseline table")
	flag.IntVar(&o.cutoff, "cutoff", 0, "last legacy year")
	flag.Parse()

	if o.legacyDir != "" && o.cutoff == 0 {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(o, os.Stdout))
}

func run(o options, out io.Writer) int {
	fmt.Fprintln(out, "=== Coastal Load Report Validation ===")

	tables, err := loadTables(o.dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load tables: %v\n", err)
		return 1
	}
	if len(tables) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no tables in %s\n", o.dir)
		return 1
	}

	var store *legacy.Store
	if o.legacyDir != "" {
		store, err = legacy.NewStore(o.legacyDir, o.baseline, slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: open legacy tables: %v\n", err)
			return 1
		}
	}

	phases := []*phase{
		validateLayout(tables),
		validateCells(tables),
		validateYears(tables, anchorYears(store, o.cutoff)),
	}
	if store != nil {
		phases = append(phases, validateLegacyParity(tables, store, o.cutoff))
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintf(out, "\nTables: %d, rows: %d\n", len(tables), countRows(tables))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// anchorYears returns the baseline year of a section when its baseline row
// is at or before the cutoff, so the gap after it is accepted.
func anchorYears(store *legacy.Store, cutoff int) func(domain.Section) int {
	return func(s domain.Section) int {
		if store == nil {
			return 0
		}
		t, ok, _ := store.Baseline(s.Heading())
		if !ok || len(t.Rows) != 1 || t.Rows[0].Year > cutoff {
			return 0
		}
		return t.Rows[0].Year
	}
}

// ── Data loading ──

// table is one output CSV as written, plus the rows it parsed to.
type table struct {
	file    string
	section domain.Section
	header  []string
	raw     [][]string
	rows    []domain.SeriesRow
	// rowErrs holds cell errors by data line number.
	rowErrs map[int]error
}

func loadTables(dir string) ([]*table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var tables []*table
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		t, err := loadTable(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func loadTable(path string) (*table, error) {
	section, err := domain.SectionFromFileName(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	t := &table{
		file:    filepath.Base(path),
		section: section,
		header:  all[0],
		raw:     all[1:],
		rowErrs: make(map[int]error),
	}
	for i, cells := range t.raw {
		row, err := parseRow(cells)
		if err != nil {
			t.rowErrs[i+2] = err
			continue
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// parseRow reads a year followed by one integer or empty cell per category.
func parseRow(cells []string) (domain.SeriesRow, error) {
	if len(cells) != domain.NumCategories+1 {
		return domain.SeriesRow{}, fmt.Errorf("%d cells, want %d", len(cells), domain.NumCategories+1)
	}
	year, err := strconv.Atoi(cells[0])
	if err != nil {
		return domain.SeriesRow{}, fmt.Errorf("year %q is not an integer", cells[0])
	}
	row := domain.SeriesRow{Year: year}
	for i, c := range domain.Categories {
		s := cells[i+1]
		if s == "" {
			continue
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return domain.SeriesRow{}, fmt.Errorf("%s %q is not an integer", c.Column(), s)
		}
		row.Cells[c] = domain.Known(v)
	}
	return row, nil
}

func countRows(tables []*table) int {
	n := 0
	for _, t := range tables {
		n += len(t.raw)
	}
	return n
}

// ── Phases ──

func validateLayout(tables []*table) *phase {
	p := &phase{name: "Table layout"}
	want := output.Header()
	for _, t := range tables {
		if !slices.Equal(t.header, want) {
			p.errorf("%s: header %v, want %v", t.file, t.header, want)
		}
		if len(t.raw) == 0 {
			p.errorf("%s: no data rows", t.file)
		}
	}
	return p
}

func validateCells(tables []*table) *phase {
	p := &phase{name: "Integer cells"}
	for _, t := range tables {
		lines := make([]int, 0, len(t.rowErrs))
		for line := range t.rowErrs {
			lines = append(lines, line)
		}
		slices.Sort(lines)
		for _, line := range lines {
			p.errorf("%s line %d: %v", t.file, line, t.rowErrs[line])
		}
	}
	return p
}

func validateYears(tables []*table, baselineYear func(domain.Section) int) *phase {
	p := &phase{name: "Ascending unique contiguous years"}
	for _, t := range tables {
		if err := domain.CheckContinuity(t.rows, baselineYear(t.section)); err != nil {
			p.errorf("%s: %v", t.file, err)
		}
	}
	return p
}

func validateLegacyParity(tables []*table, store domain.LegacySource, cutoff int) *phase {
	p := &phase{name: fmt.Sprintf("Legacy parity (<= %d)", cutoff)}
	for _, t := range tables {
		heading := t.section.Heading()
		expected, err := expectedLegacyRows(store, heading)
		if err != nil {
			p.errorf("%s: %v", t.file, err)
			continue
		}
		byYear := make(map[int]domain.SeriesRow, len(expected))
		for _, row := range expected {
			byYear[row.Year] = row
		}

		for _, row := range t.rows {
			if row.Year > cutoff {
				continue
			}
			want, ok := byYear[row.Year]
			if !ok {
				p.errorf("%s: year %d not in legacy table", t.file, row.Year)
				continue
			}
			if got, exp := output.FormatRow(row), output.FormatRow(want); !slices.Equal(got, exp) {
				p.errorf("%s: year %d is %v, legacy has %v", t.file, row.Year, got, exp)
			}
		}
	}
	return p
}

func expectedLegacyRows(store domain.LegacySource, heading string) ([]domain.SeriesRow, error) {
	lt, ok, err := store.Table(heading)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no legacy table for %q", heading)
	}
	rows, err := domain.LegacyRows(lt)
	if err != nil {
		return nil, err
	}
	base, ok, err := store.Baseline(heading)
	if err != nil || !ok {
		return rows, err
	}
	baseRows, err := domain.LegacyRows(base)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	return append(baseRows, rows...), nil
}
