package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means the source for a year or a legacy table could
	// not be retrieved.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrSchemaMismatch means an expected raw variable or category column is
	// missing or malformed.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrReconciliationConflict means a merged series has duplicate or
	// missing years.
	ErrReconciliationConflict = errors.New("reconciliation conflict")
)

// Stage names the step of a report run where a failure happened.
type Stage string

const (
	StageLoad      Stage = "load"
	StageCategory  Stage = "category"
	StageRegion    Stage = "region"
	StageReconcile Stage = "reconcile"
	StageWrite     Stage = "write"
)

// Failure records one failed unit of work: a year, a catchment/year, or a
// series. Failures never abort sibling units.
type Failure struct {
	Stage Stage
	Unit  string
	// Catchment and Year identify the unit of a category failure. Year is
	// also set for region failures.
	Catchment string
	Year      int
	Err       error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Stage, f.Unit, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Kind returns the taxonomy sentinel the failure wraps, or nil.
func (f Failure) Kind() error {
	for _, kind := range []error{ErrDataUnavailable, ErrSchemaMismatch, ErrReconciliationConflict} {
		if errors.Is(f.Err, kind) {
			return kind
		}
	}
	return nil
}
