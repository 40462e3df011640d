package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

// ParseModelCSV reads one year of model output and returns the raw records
// of nutrient n for coastal catchments. Columns are looked up by name after
// normalization. When the file has no year column every row is assigned the
// requested year; when it has one, every row must match it.
//
// Only accum_*-<n>_tonnes columns become records. An empty cell produces no
// record, and an unparsable one a NaN record, so the catchment/year is
// reported by the category aggregator rather than failing the whole file.
func ParseModelCSV(r io.Reader, year int, n domain.Nutrient) ([]domain.CatchmentRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	raw, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty model table", domain.ErrSchemaMismatch)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", domain.ErrSchemaMismatch, err)
	}
	header, err := domain.NormalizeHeader(raw)
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, col := range header {
		cols[col] = i
	}
	catchmentIdx, ok := cols[domain.CatchmentColumn]
	if !ok {
		return nil, fmt.Errorf("%w: missing column %s", domain.ErrSchemaMismatch, domain.CatchmentColumn)
	}
	yearIdx, hasYear := cols[domain.YearColumn]

	var missing []string
	for _, v := range domain.RequiredVariables(n) {
		if _, ok := cols[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", domain.ErrSchemaMismatch, strings.Join(missing, ", "))
	}

	var varCols []int
	for i, col := range header {
		if domain.IsNutrientVariable(col, n) {
			varCols = append(varCols, i)
		}
	}

	var records []domain.CatchmentRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSchemaMismatch, err)
		}

		code := strings.TrimSpace(row[catchmentIdx])
		if !domain.IsCoastalCatchment(code) {
			continue
		}
		if hasYear {
			y, err := strconv.Atoi(strings.TrimSpace(row[yearIdx]))
			if err != nil || y != year {
				return nil, fmt.Errorf("%w: line %d: year %q in table for %d",
					domain.ErrSchemaMismatch, line, row[yearIdx], year)
			}
		}

		for _, i := range varCols {
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				v = math.NaN()
			}
			records = append(records, domain.CatchmentRecord{
				CatchmentID: code,
				Year:        year,
				Nutrient:    n,
				Variable:    header[i],
				Value:       v,
			})
		}
	}
	return records, nil
}
