package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

// Result is the outcome of one report run. Failures are collected per unit
// and never abort sibling units.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	// Tables holds every table handed to the sinks, in section order.
	Tables []domain.Table
	// Series holds the reconciliation outcome of every section with a
	// cutoff, including failed ones.
	Series   []domain.ReconciledSeries
	Failures []domain.Failure
}

// OK reports whether the run finished without failures.
func (r Result) OK() bool {
	return len(r.Failures) == 0
}

// Err joins all failures, or returns nil.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// FailureCounts tallies failures by stage.
func (r Result) FailureCounts() map[domain.Stage]int {
	counts := make(map[domain.Stage]int)
	for _, f := range r.Failures {
		counts[f.Stage]++
	}
	return counts
}

// Table returns the table written for a section heading.
func (r Result) Table(heading string) (domain.Table, bool) {
	for _, t := range r.Tables {
		if t.Section.Heading() == heading {
			return t, true
		}
	}
	return domain.Table{}, false
}

func (r Result) String() string {
	return fmt.Sprintf("run %s: %d tables, %d failures", r.RunID, len(r.Tables), len(r.Failures))
}
