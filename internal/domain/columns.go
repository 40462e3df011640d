package domain

import (
	"fmt"
	"strings"
)

const (
	// YearColumn is the year header used by legacy and output tables.
	YearColumn = "År"
	// CatchmentColumn is the catchment header in TEOTIL output.
	CatchmentColumn = "regine"
	// SectionColumn indexes the single-year baseline table.
	SectionColumn = "section_name"
)

// columnAliases maps historic header spellings to their current names.
// No alias target may itself be an alias key, which keeps NormalizeColumn
// idempotent.
var columnAliases = map[string]string{
	"Bakgrun":      "Bakgrunn",
	"Befolkning":   "Avløp",
	"catchment_id": CatchmentColumn,
	"year":         YearColumn,
	"Year":         YearColumn,
}

// NormalizeColumn returns the current name for a header.
func NormalizeColumn(name string) string {
	name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	if to, ok := columnAliases[name]; ok {
		return to
	}
	return name
}

// NormalizeHeader normalizes every column and rejects headers where two
// columns collapse onto the same name, e.g. both "Bakgrun" and "Bakgrunn".
func NormalizeHeader(header []string) ([]string, error) {
	out := make([]string, len(header))
	seen := make(map[string]string, len(header))
	for i, col := range header {
		norm := NormalizeColumn(col)
		if prev, ok := seen[norm]; ok {
			return nil, fmt.Errorf("%w: columns %q and %q both map to %q", ErrSchemaMismatch, prev, col, norm)
		}
		seen[norm] = col
		out[i] = norm
	}
	return out, nil
}

const (
	firstCoastalCatchment = 1
	lastCoastalCatchment  = 247
	// iddefjordCatchment drains to Skagerrak outside the contiguous range.
	iddefjordCatchment = 315
)

var coastalCatchments = func() map[string]struct{} {
	set := make(map[string]struct{}, lastCoastalCatchment+1)
	for i := firstCoastalCatchment; i <= lastCoastalCatchment; i++ {
		set[CatchmentCode(i)] = struct{}{}
	}
	set[CatchmentCode(iddefjordCatchment)] = struct{}{}
	return set
}()

// CatchmentCode formats a main catchment number, e.g. 5 -> "005.".
func CatchmentCode(n int) string {
	return fmt.Sprintf("%03d.", n)
}

// IsCoastalCatchment reports whether code is on the coastal allow-list.
func IsCoastalCatchment(code string) bool {
	_, ok := coastalCatchments[code]
	return ok
}

// CoastalCatchments returns the allow-list in ascending order.
func CoastalCatchments() []string {
	codes := make([]string, 0, len(coastalCatchments))
	for i := firstCoastalCatchment; i <= lastCoastalCatchment; i++ {
		codes = append(codes, CatchmentCode(i))
	}
	return append(codes, CatchmentCode(iddefjordCatchment))
}
