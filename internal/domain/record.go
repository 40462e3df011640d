package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatchmentRecord is one raw model value for a catchment, year and variable.
type CatchmentRecord struct {
	CatchmentID string
	Year        int
	Nutrient    Nutrient
	Variable    string
	Value       float64
}

// CategoryRow holds the category sums for one catchment and year. Sums are
// kept as decimals so region totals are exact before rounding.
type CategoryRow struct {
	CatchmentID string
	Year        int
	Values      [NumCategories]decimal.Decimal
}

// Cell is one integer tonnage in a report table. Legacy tables may leave
// cells empty, which is represented by Valid == false.
type Cell struct {
	Value int64
	Valid bool
}

// Known wraps a present value.
func Known(v int64) Cell {
	return Cell{Value: v, Valid: true}
}

// Cells holds one cell per category in report order.
type Cells [NumCategories]Cell

// SeriesRow is one year of a report table.
type SeriesRow struct {
	Year  int
	Cells Cells
}

// RegionYearAggregate is the rounded category total of one region, nutrient
// and year.
type RegionYearAggregate struct {
	Region   string
	Nutrient Nutrient
	Year     int
	Values   [NumCategories]int64
}

// Row converts the aggregate to a report row.
func (a RegionYearAggregate) Row() SeriesRow {
	row := SeriesRow{Year: a.Year}
	for _, c := range Categories {
		row.Cells[c] = Known(a.Values[c])
	}
	return row
}

// SeriesRows converts aggregates to report rows, preserving order.
func SeriesRows(aggs []RegionYearAggregate) []SeriesRow {
	rows := make([]SeriesRow, len(aggs))
	for i, a := range aggs {
		rows[i] = a.Row()
	}
	return rows
}

// Table is a finished report table handed to the output sinks.
type Table struct {
	Section Section
	Rows    []SeriesRow
	// Reconciled is true when legacy rows were merged in.
	Reconciled bool
	// RunID and GeneratedAt identify the report run that produced the table.
	RunID       string
	GeneratedAt time.Time
}

// roundTonnes rounds half-to-even to whole tonnes.
func roundTonnes(d decimal.Decimal) int64 {
	return d.RoundBank(0).IntPart()
}

// RoundTonnes rounds a float tonnage half-to-even.
func RoundTonnes(v float64) int64 {
	return roundTonnes(decimal.NewFromFloat(v))
}
