package domain

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

type catchmentYear struct {
	catchment string
	year      int
}

// AggregateCategories sums raw model variables into report categories for
// each catchment and year. A catchment/year that lacks any mapped variable,
// repeats a variable, or carries an invalid value is reported as a
// SchemaMismatch failure and left out of the result; all other
// catchment/years are still returned. Variables not used by any category
// are dropped. Output is sorted by year, then catchment.
func AggregateCategories(n Nutrient, records []CatchmentRecord) ([]CategoryRow, []Failure) {
	groups := make(map[catchmentYear]map[string]float64)
	broken := make(map[catchmentYear]error)

	for _, rec := range records {
		key := catchmentYear{catchment: rec.CatchmentID, year: rec.Year}
		if _, bad := broken[key]; bad {
			continue
		}
		if err := checkRecord(n, rec); err != nil {
			broken[key] = err
			delete(groups, key)
			continue
		}
		vars, ok := groups[key]
		if !ok {
			vars = make(map[string]float64)
			groups[key] = vars
		}
		if _, dup := vars[rec.Variable]; dup {
			broken[key] = fmt.Errorf("%w: variable %s appears twice", ErrSchemaMismatch, rec.Variable)
			delete(groups, key)
			continue
		}
		vars[rec.Variable] = rec.Value
	}

	rows := make([]CategoryRow, 0, len(groups))
	for key, vars := range groups {
		row, err := categoryRow(n, key, vars)
		if err != nil {
			broken[key] = err
			continue
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b CategoryRow) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return strings.Compare(a.CatchmentID, b.CatchmentID)
	})

	failures := make([]Failure, 0, len(broken))
	for key, err := range broken {
		failures = append(failures, Failure{
			Stage:     StageCategory,
			Unit:      fmt.Sprintf("%s/%d", key.catchment, key.year),
			Catchment: key.catchment,
			Year:      key.year,
			Err:       err,
		})
	}
	slices.SortFunc(failures, func(a, b Failure) int { return strings.Compare(a.Unit, b.Unit) })

	return rows, failures
}

func checkRecord(n Nutrient, rec CatchmentRecord) error {
	if rec.Nutrient != n {
		return fmt.Errorf("%w: record for nutrient %q in %q run", ErrSchemaMismatch, rec.Nutrient, n)
	}
	if math.IsNaN(rec.Value) || math.IsInf(rec.Value, 0) || rec.Value < 0 {
		return fmt.Errorf("%w: variable %s has invalid value %v", ErrSchemaMismatch, rec.Variable, rec.Value)
	}
	return nil
}

func categoryRow(n Nutrient, key catchmentYear, vars map[string]float64) (CategoryRow, error) {
	row := CategoryRow{CatchmentID: key.catchment, Year: key.year}
	var missing []string
	for _, c := range Categories {
		sum := decimal.Zero
		for _, v := range RawVariables(c, n) {
			val, ok := vars[v]
			if !ok {
				missing = append(missing, v)
				continue
			}
			sum = sum.Add(decimal.NewFromFloat(val))
		}
		row.Values[c] = sum
	}
	if len(missing) > 0 {
		return CategoryRow{}, fmt.Errorf("%w: missing raw variables %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return row, nil
}

// AggregateRegion sums category rows over the region's member catchments and
// returns one rounded aggregate per year in ascending order. Years with no
// member rows produce no aggregate. rejected holds the category failures of
// the run; a year in which any member catchment was rejected produces no
// aggregate either, and is reported as a region failure instead of being
// summed from the remaining members.
func AggregateRegion(region RegionDefinition, n Nutrient, rows []CategoryRow, rejected []Failure) ([]RegionYearAggregate, []Failure) {
	members := region.MemberSet()

	incomplete := make(map[int][]string)
	for _, f := range rejected {
		if f.Stage != StageCategory {
			continue
		}
		if _, ok := members[f.Catchment]; ok {
			incomplete[f.Year] = append(incomplete[f.Year], f.Catchment)
		}
	}

	sums := make(map[int]*[NumCategories]decimal.Decimal)
	for _, row := range rows {
		if _, ok := members[row.CatchmentID]; !ok {
			continue
		}
		if _, ok := incomplete[row.Year]; ok {
			continue
		}
		acc, ok := sums[row.Year]
		if !ok {
			acc = new([NumCategories]decimal.Decimal)
			sums[row.Year] = acc
		}
		for _, c := range Categories {
			acc[c] = acc[c].Add(row.Values[c])
		}
	}

	years := make([]int, 0, len(sums))
	for y := range sums {
		years = append(years, y)
	}
	slices.Sort(years)

	out := make([]RegionYearAggregate, 0, len(years))
	for _, y := range years {
		agg := RegionYearAggregate{Region: region.Name, Nutrient: n, Year: y}
		for _, c := range Categories {
			agg.Values[c] = roundTonnes(sums[y][c])
		}
		out = append(out, agg)
	}

	failYears := make([]int, 0, len(incomplete))
	for y := range incomplete {
		failYears = append(failYears, y)
	}
	slices.Sort(failYears)

	failures := make([]Failure, 0, len(failYears))
	for _, y := range failYears {
		codes := incomplete[y]
		slices.Sort(codes)
		failures = append(failures, Failure{
			Stage: StageRegion,
			Unit:  fmt.Sprintf("%s/%d", region.Name, y),
			Year:  y,
			Err:   fmt.Errorf("%w: member catchments rejected: %s", ErrDataUnavailable, strings.Join(codes, ", ")),
		})
	}
	return out, failures
}
