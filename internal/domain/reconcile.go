package domain

import (
	"fmt"
	"slices"
	"strconv"
)

// LegacyTable is a hand-curated historic table as read from disk, with its
// original column names.
type LegacyTable struct {
	Heading string
	Columns []string
	Rows    []LegacyRow
}

// LegacyRow is one year of a legacy table. Values are keyed by the table's
// column names; an absent key is an empty cell.
type LegacyRow struct {
	Year   int
	Values map[string]float64
}

// LegacySource looks up legacy tables by section heading.
type LegacySource interface {
	// Table returns the multi-year legacy table for a heading.
	Table(heading string) (LegacyTable, bool, error)
	// Baseline returns the single-year table row for a heading, used to
	// prepend a synthetic earliest year.
	Baseline(heading string) (LegacyTable, bool, error)
}

// SeriesState tracks the progress of one reconciled series.
type SeriesState int

const (
	Unloaded SeriesState = iota
	LegacyLoaded
	Merged
	Sorted
	Validated
	Failed
)

func (s SeriesState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case LegacyLoaded:
		return "legacy_loaded"
	case Merged:
		return "merged"
	case Sorted:
		return "sorted"
	case Validated:
		return "validated"
	case Failed:
		return "failed"
	default:
		return "SeriesState(" + strconv.Itoa(int(s)) + ")"
	}
}

// ReconciledSeries is the outcome of reconciling one section.
type ReconciledSeries struct {
	Section Section
	Rows    []SeriesRow
	State   SeriesState
	// SyntheticYear is the baseline year prepended from the single-year
	// table, or zero.
	SyntheticYear int
}

// Reconciler merges legacy tables with model series at a cutoff year.
type Reconciler struct {
	source LegacySource
}

// NewReconciler creates a Reconciler reading legacy tables from src.
func NewReconciler(src LegacySource) *Reconciler {
	return &Reconciler{source: src}
}

// Reconcile returns legacy rows up to and including section.CutoffYear
// followed by model rows after it. The model slice is not modified. On
// error the returned series is in the Failed state and carries no rows.
func (r *Reconciler) Reconcile(section Section, model []SeriesRow) (ReconciledSeries, error) {
	b := &seriesBuilder{series: ReconciledSeries{Section: section}}
	heading := section.Heading()

	steps := []func() error{
		func() error { return b.load(r.source, heading) },
		func() error { return b.merge(model) },
		b.sort,
		b.validate,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.series.State = Failed
			b.series.Rows = nil
			return b.series, fmt.Errorf("reconcile %q: %w", heading, err)
		}
	}
	return b.series, nil
}

// seriesBuilder walks one series through Unloaded → LegacyLoaded → Merged →
// Sorted → Validated.
type seriesBuilder struct {
	series ReconciledSeries
	legacy []SeriesRow
	// lastYear is the year the merged series must reach: the cutoff, or
	// the last model year when that is later.
	lastYear int
}

func (b *seriesBuilder) load(src LegacySource, heading string) error {
	table, ok, err := src.Table(heading)
	if err != nil {
		return fmt.Errorf("%w: legacy table: %w", ErrDataUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: no legacy table for heading", ErrDataUnavailable)
	}
	rows, err := LegacyRows(table)
	if err != nil {
		return err
	}

	base, ok, err := src.Baseline(heading)
	if err != nil {
		return fmt.Errorf("%w: baseline table: %w", ErrDataUnavailable, err)
	}
	if ok {
		baseRows, err := LegacyRows(base)
		if err != nil {
			return fmt.Errorf("baseline: %w", err)
		}
		if len(baseRows) != 1 {
			return fmt.Errorf("%w: baseline has %d rows for heading, want 1", ErrSchemaMismatch, len(baseRows))
		}
		b.series.SyntheticYear = baseRows[0].Year
		rows = append(baseRows, rows...)
	}

	b.legacy = rows
	b.series.State = LegacyLoaded
	return nil
}

func (b *seriesBuilder) merge(model []SeriesRow) error {
	cutoff := b.series.Section.CutoffYear
	merged := make([]SeriesRow, 0, len(b.legacy)+len(model))
	for _, row := range b.legacy {
		if row.Year <= cutoff {
			merged = append(merged, row)
		}
	}
	b.lastYear = cutoff
	for _, row := range model {
		if row.Year > cutoff {
			merged = append(merged, row)
		}
		b.lastYear = max(b.lastYear, row.Year)
	}
	if b.series.SyntheticYear > cutoff {
		b.series.SyntheticYear = 0
	}
	b.series.Rows = merged
	b.series.State = Merged
	return nil
}

func (b *seriesBuilder) sort() error {
	slices.SortStableFunc(b.series.Rows, func(x, y SeriesRow) int { return x.Year - y.Year })
	b.series.State = Sorted
	return nil
}

func (b *seriesBuilder) validate() error {
	rows := b.series.Rows
	if err := CheckContinuity(rows, b.series.SyntheticYear); err != nil {
		return err
	}
	last := 0
	if len(rows) > 0 {
		last = rows[len(rows)-1].Year
	}
	if last < b.lastYear {
		return fmt.Errorf("%w: series ends at %d, want %d (cutoff %d)",
			ErrReconciliationConflict, last, b.lastYear, b.series.Section.CutoffYear)
	}
	b.series.State = Validated
	return nil
}

// CheckContinuity verifies that sorted rows hold exactly one row per year.
// A gap directly after syntheticYear is allowed, since the baseline row is
// an isolated anchor year.
func CheckContinuity(rows []SeriesRow, syntheticYear int) error {
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1].Year, rows[i].Year
		switch {
		case cur == prev:
			return fmt.Errorf("%w: duplicate year %d", ErrReconciliationConflict, cur)
		case cur < prev:
			return fmt.Errorf("%w: year %d after %d", ErrReconciliationConflict, cur, prev)
		case cur > prev+1 && !(i == 1 && prev == syntheticYear && syntheticYear != 0):
			return fmt.Errorf("%w: missing years %d-%d", ErrReconciliationConflict, prev+1, cur-1)
		}
	}
	return nil
}

// LegacyRows normalizes the column names of a legacy table and converts it
// to report rows. Every category must be present as a column; empty cells
// stay empty and present cells are rounded to whole tonnes.
func LegacyRows(t LegacyTable) ([]SeriesRow, error) {
	header, err := NormalizeHeader(t.Columns)
	if err != nil {
		return nil, err
	}
	rename := make(map[string]string, len(header))
	present := make(map[string]bool, len(header))
	for i, col := range header {
		rename[t.Columns[i]] = col
		present[col] = true
	}
	for _, c := range Categories {
		if !present[c.Column()] {
			return nil, fmt.Errorf("%w: legacy table lacks column %s", ErrSchemaMismatch, c.Column())
		}
	}

	rows := make([]SeriesRow, 0, len(t.Rows))
	for _, lr := range t.Rows {
		row := SeriesRow{Year: lr.Year}
		for col, v := range lr.Values {
			c, ok := CategoryFromColumn(rename[col])
			if !ok {
				continue
			}
			row.Cells[c] = Known(RoundTonnes(v))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
