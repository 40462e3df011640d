package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLegacy struct {
	tables    map[string]LegacyTable
	baselines map[string]LegacyTable
	err       error
}

func (f *fakeLegacy) Table(heading string) (LegacyTable, bool, error) {
	if f.err != nil {
		return LegacyTable{}, false, f.err
	}
	t, ok := f.tables[heading]
	return t, ok, nil
}

func (f *fakeLegacy) Baseline(heading string) (LegacyTable, bool, error) {
	t, ok := f.baselines[heading]
	return t, ok, nil
}

var legacyColumns = []string{"År", "Akvakultur", "Jordbruk", "Befolkning", "Industri", "Bakgrun", "Totalt", "Menneskeskapt"}

// legacyTable builds a legacy table with Totalt set from totals and every
// other category at zero. Old column spellings are used on purpose.
func legacyTable(heading string, firstYear int, totals ...float64) LegacyTable {
	t := LegacyTable{Heading: heading, Columns: legacyColumns}
	for i, v := range totals {
		t.Rows = append(t.Rows, LegacyRow{
			Year: firstYear + i,
			Values: map[string]float64{
				"Akvakultur": 0, "Jordbruk": 0, "Befolkning": 0, "Industri": 0,
				"Bakgrun": 0, "Totalt": v, "Menneskeskapt": 0,
			},
		})
	}
	return t
}

func modelRows(firstYear int, totals ...int64) []SeriesRow {
	rows := make([]SeriesRow, 0, len(totals))
	for i, v := range totals {
		var agg RegionYearAggregate
		agg.Year = firstYear + i
		agg.Values[Total] = v
		rows = append(rows, agg.Row())
	}
	return rows
}

func totals(rows []SeriesRow) map[int]int64 {
	out := make(map[int]int64, len(rows))
	for _, r := range rows {
		out[r.Year] = r.Cells[Total].Value
	}
	return out
}

var glommaP = Section{Region: "Glomma", Nutrient: Phosphorus, CutoffYear: 1995}

func TestReconcile_Scenario(t *testing.T) {
	src := &fakeLegacy{tables: map[string]LegacyTable{
		"Glomma: fosfor": legacyTable("Glomma: fosfor", 1985, 100, 104, 108, 112, 116, 120, 124, 128, 132, 136, 140),
	}}
	model := modelRows(1990, 95, 103, 110, 118, 125, 132, 146, 150, 153, 157, 160)

	series, err := NewReconciler(src).Reconcile(glommaP, model)
	require.NoError(t, err)
	assert.Equal(t, Validated, series.State)

	require.Len(t, series.Rows, 16)
	assert.Equal(t, 1985, series.Rows[0].Year)
	assert.Equal(t, 2000, series.Rows[len(series.Rows)-1].Year)

	got := totals(series.Rows)
	assert.Equal(t, int64(140), got[1995], "cutoff year comes from legacy")
	assert.Equal(t, int64(146), got[1996], "year after cutoff comes from model")
	assert.Equal(t, int64(120), got[1990], "legacy wins over model for overlapping years")
	assert.Equal(t, int64(160), got[2000])
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	src := &fakeLegacy{tables: map[string]LegacyTable{
		"Glomma: fosfor": legacyTable("Glomma: fosfor", 1994, 1, 2),
	}}
	model := modelRows(1996, 9, 8)
	model[0], model[1] = model[1], model[0]
	model[0].Year, model[1].Year = 1997, 1996
	before := append([]SeriesRow(nil), model...)

	series, err := NewReconciler(src).Reconcile(glommaP, model)
	require.NoError(t, err)
	assert.Equal(t, before, model)
	assert.Equal(t, []int{1994, 1995, 1996, 1997}, years(series.Rows))
}

func TestReconcile_Baseline(t *testing.T) {
	src := &fakeLegacy{
		tables: map[string]LegacyTable{
			"Glomma: fosfor": legacyTable("Glomma: fosfor", 1990, 10, 11, 12, 13, 14, 15),
		},
		baselines: map[string]LegacyTable{
			"Glomma: fosfor": legacyTable("Glomma: fosfor", 1985, 7),
		},
	}
	series, err := NewReconciler(src).Reconcile(glommaP, modelRows(1996, 20))
	require.NoError(t, err)
	assert.Equal(t, 1985, series.SyntheticYear)
	assert.Equal(t, []int{1985, 1990, 1991, 1992, 1993, 1994, 1995, 1996}, years(series.Rows))
	assert.Equal(t, int64(7), series.Rows[0].Cells[Total].Value)
}

func TestReconcile_ModelEndingBeforeCutoff(t *testing.T) {
	src := &fakeLegacy{tables: map[string]LegacyTable{
		"Glomma: fosfor": legacyTable("Glomma: fosfor", 1990, 1, 2, 3, 4, 5, 6),
	}}
	series, err := NewReconciler(src).Reconcile(glommaP, modelRows(1990, 9, 9, 9))
	require.NoError(t, err)
	assert.Equal(t, Validated, series.State)
	assert.Equal(t, []int{1990, 1991, 1992, 1993, 1994, 1995}, years(series.Rows))
}

func TestReconcile_Failures(t *testing.T) {
	tests := []struct {
		name    string
		src     *fakeLegacy
		model   []SeriesRow
		section Section
		wantErr error
	}{
		{
			name:    "missing legacy table",
			src:     &fakeLegacy{},
			model:   modelRows(1996, 1),
			wantErr: ErrDataUnavailable,
		},
		{
			name:    "source error",
			src:     &fakeLegacy{err: errors.New("disk on fire")},
			model:   modelRows(1996, 1),
			wantErr: ErrDataUnavailable,
		},
		{
			name: "gap between legacy and model",
			src: &fakeLegacy{tables: map[string]LegacyTable{
				"Glomma: fosfor": legacyTable("Glomma: fosfor", 1990, 1, 2, 3, 4, 5, 6),
			}},
			model:   modelRows(1997, 1),
			wantErr: ErrReconciliationConflict,
		},
		{
			name: "legacy ends before cutoff",
			src: &fakeLegacy{tables: map[string]LegacyTable{
				"Glomma: fosfor": legacyTable("Glomma: fosfor", 1990, 1, 2, 3),
			}},
			model:   modelRows(1996, 1),
			wantErr: ErrReconciliationConflict,
		},
		{
			name: "cutoff beyond legacy and model",
			src: &fakeLegacy{tables: map[string]LegacyTable{
				"Glomma: fosfor": legacyTable("Glomma: fosfor", 1990, 1, 2, 3, 4, 5, 6),
			}},
			model:   modelRows(1990, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11),
			section: Section{Region: "Glomma", Nutrient: Phosphorus, CutoffYear: 2005},
			wantErr: ErrReconciliationConflict,
		},
		{
			name: "legacy stops short of cutoff after model ends",
			src: &fakeLegacy{tables: map[string]LegacyTable{
				"Glomma: fosfor": legacyTable("Glomma: fosfor", 1990, 1, 2, 3, 4),
			}},
			model:   modelRows(1990, 1, 2, 3),
			wantErr: ErrReconciliationConflict,
		},
		{
			name: "baseline collides with legacy year",
			src: &fakeLegacy{
				tables: map[string]LegacyTable{
					"Glomma: fosfor": legacyTable("Glomma: fosfor", 1990, 1, 2, 3, 4, 5, 6),
				},
				baselines: map[string]LegacyTable{
					"Glomma: fosfor": legacyTable("Glomma: fosfor", 1990, 7),
				},
			},
			model:   modelRows(1996, 1),
			wantErr: ErrReconciliationConflict,
		},
		{
			name: "baseline with two rows",
			src: &fakeLegacy{
				tables: map[string]LegacyTable{
					"Glomma: fosfor": legacyTable("Glomma: fosfor", 1990, 1, 2, 3, 4, 5, 6),
				},
				baselines: map[string]LegacyTable{
					"Glomma: fosfor": legacyTable("Glomma: fosfor", 1984, 7, 8),
				},
			},
			model:   modelRows(1996, 1),
			wantErr: ErrSchemaMismatch,
		},
		{
			name: "legacy column missing",
			src: &fakeLegacy{tables: map[string]LegacyTable{
				"Glomma: fosfor": {Heading: "Glomma: fosfor", Columns: []string{"År", "Totalt"}},
			}},
			model:   modelRows(1996, 1),
			wantErr: ErrSchemaMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section := tt.section
			if section.CutoffYear == 0 {
				section = glommaP
			}
			series, err := NewReconciler(tt.src).Reconcile(section, tt.model)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, Failed, series.State)
			assert.Nil(t, series.Rows)
		})
	}
}

func TestCheckContinuity(t *testing.T) {
	rows := func(ys ...int) []SeriesRow {
		out := make([]SeriesRow, len(ys))
		for i, y := range ys {
			out[i].Year = y
		}
		return out
	}
	tests := []struct {
		name      string
		rows      []SeriesRow
		synthetic int
		wantErr   bool
	}{
		{"contiguous", rows(1990, 1991, 1992), 0, false},
		{"empty", nil, 0, false},
		{"duplicate", rows(1990, 1990, 1991), 0, true},
		{"gap", rows(1990, 1992), 0, true},
		{"descending", rows(1991, 1990), 0, true},
		{"gap after synthetic row", rows(1985, 1990, 1991), 1985, false},
		{"gap later than synthetic row", rows(1985, 1990, 1992), 1985, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckContinuity(tt.rows, tt.synthetic)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrReconciliationConflict)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLegacyRows_EmptyCellsStayEmpty(t *testing.T) {
	table := LegacyTable{
		Columns: legacyColumns,
		Rows: []LegacyRow{{
			Year:   1990,
			Values: map[string]float64{"Totalt": 12.5, "Befolkning": 3.4},
		}},
	}
	rows, err := LegacyRows(table)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, Known(12), rows[0].Cells[Total], "half rounds to even")
	assert.Equal(t, Known(3), rows[0].Cells[Wastewater])
	assert.False(t, rows[0].Cells[Aquaculture].Valid)
}

func TestSeriesState_String(t *testing.T) {
	assert.Equal(t, "legacy_loaded", LegacyLoaded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "SeriesState(42)", SeriesState(42).String())
}

func years(rows []SeriesRow) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Year
	}
	return out
}
