package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
	"github.com/couchcryptid/coastal-loads-etl/internal/observability"
)

// Source loads the raw model records of one year and nutrient.
type Source interface {
	Load(ctx context.Context, year int, n domain.Nutrient) ([]domain.CatchmentRecord, error)
}

// Sink receives finished report tables.
type Sink interface {
	WriteTable(ctx context.Context, t domain.Table) error
}

// NamedSink labels a sink for logs and metrics.
type NamedSink struct {
	Name string
	Sink Sink
}

// Options selects what a run reports.
type Options struct {
	Years     []int
	Nutrients []domain.Nutrient
	Regions   []domain.RegionDefinition
	// CutoffYear is the default legacy cutoff; Cutoffs overrides it per
	// region. A zero cutoff disables reconciliation for a section.
	CutoffYear int
	Cutoffs    map[string]int
	Workers    int
}

func (o Options) validate() error {
	for _, n := range o.Nutrients {
		if !n.Valid() {
			return fmt.Errorf("unknown nutrient %q", n)
		}
	}
	return domain.ValidateRegions(o.Regions)
}

// Pipeline runs the load, aggregate, reconcile and write stages of a report.
type Pipeline struct {
	source     Source
	reconciler *domain.Reconciler
	sinks      []NamedSink
	opts       Options
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
	last       atomic.Pointer[Result]
}

// New creates a Pipeline. legacy may be nil, which disables reconciliation
// regardless of cutoffs.
func New(src Source, legacy domain.LegacySource, sinks []NamedSink, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	p := &Pipeline{
		source:  src,
		sinks:   sinks,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
	if legacy != nil {
		p.reconciler = domain.NewReconciler(legacy)
	}
	return p
}

// CheckReadiness returns nil once a run has completed, or an error describing
// why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no report run has completed yet")
	}
	return nil
}

// LastRun returns the result of the most recent completed run.
func (p *Pipeline) LastRun() (Result, bool) {
	res := p.last.Load()
	if res == nil {
		return Result{}, false
	}
	return *res, true
}

// Run executes one report run. Per-unit failures are collected in the
// result; the returned error is non-nil only when the options are invalid or
// the context ends the run early.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString(), StartedAt: clock.Now()}
	logger := p.logger.With("run_id", res.RunID)
	if err := p.opts.validate(); err != nil {
		logger.Error("invalid run options", "error", err)
		return p.finish(res, logger), err
	}
	logger.Info("report run started",
		"years", len(p.opts.Years),
		"nutrients", p.opts.Nutrients,
		"regions", len(p.opts.Regions),
		"workers", p.opts.Workers,
	)
	p.metrics.RunRunning.Set(1)
	defer p.metrics.RunRunning.Set(0)

	// region name -> nutrient -> model rows
	model := make(map[string]map[domain.Nutrient][]domain.SeriesRow, len(p.opts.Regions))
	for _, r := range p.opts.Regions {
		model[r.Name] = make(map[domain.Nutrient][]domain.SeriesRow)
	}

	for _, n := range p.opts.Nutrients {
		rows, failures, err := p.loadYears(ctx, logger, n)
		res.Failures = append(res.Failures, failures...)
		if err != nil {
			return p.finish(res, logger), err
		}

		aggs, regionFailures, err := p.aggregateRegions(ctx, logger, n, rows, failures)
		res.Failures = append(res.Failures, regionFailures...)
		if err != nil {
			return p.finish(res, logger), err
		}
		for i, r := range p.opts.Regions {
			model[r.Name][n] = domain.SeriesRows(aggs[i])
		}
	}

	sections := domain.BuildSections(p.opts.Regions, p.opts.Nutrients, p.opts.CutoffYear, p.opts.Cutoffs)
	for _, section := range sections {
		table, series, err := p.buildTable(section, model[section.Region][section.Nutrient])
		if series != nil {
			res.Series = append(res.Series, *series)
		}
		if err != nil {
			logger.Warn("series failed", "heading", section.Heading(), "error", err)
			res.Failures = append(res.Failures, domain.Failure{
				Stage: domain.StageReconcile, Unit: section.Heading(), Err: err,
			})
			continue
		}
		if len(table.Rows) == 0 {
			logger.Warn("section has no rows, not written", "heading", section.Heading())
			continue
		}
		table.RunID = res.RunID
		table.GeneratedAt = res.StartedAt
		res.Tables = append(res.Tables, table)
	}

	for _, t := range res.Tables {
		if err := ctx.Err(); err != nil {
			return p.finish(res, logger), err
		}
		res.Failures = append(res.Failures, p.write(ctx, logger, t)...)
	}

	return p.finish(res, logger), nil
}

func (p *Pipeline) finish(res Result, logger *slog.Logger) Result {
	res.FinishedAt = clock.Now()
	p.metrics.RunDuration.Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
	slices.SortStableFunc(res.Failures, func(a, b domain.Failure) int {
		return strings.Compare(string(a.Stage), string(b.Stage))
	})
	if res.OK() {
		p.metrics.LastRunSuccess.Set(1)
	} else {
		p.metrics.LastRunSuccess.Set(0)
	}
	p.last.Store(&res)
	p.ready.Store(true)
	logger.Info("report run finished",
		"tables", len(res.Tables),
		"failures", len(res.Failures),
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	return res
}

// loadYears loads and category-aggregates every configured year on a
// bounded worker pool. A year that cannot be loaded becomes a failure; the
// other years continue.
func (p *Pipeline) loadYears(ctx context.Context, logger *slog.Logger, n domain.Nutrient) ([]domain.CategoryRow, []domain.Failure, error) {
	var (
		mu       sync.Mutex
		rows     []domain.CategoryRow
		failures []domain.Failure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, year := range p.opts.Years {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			records, err := p.source.Load(gctx, year, n)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("year load failed", "year", year, "nutrient", n, "error", err)
				f := domain.Failure{
					Stage: domain.StageLoad, Unit: fmt.Sprintf("%d/%s", year, n), Year: year, Err: err,
				}
				p.metrics.YearLoadFailures.WithLabelValues(string(n), failureKind(f)).Inc()
				mu.Lock()
				failures = append(failures, f)
				mu.Unlock()
				return nil
			}

			yearRows, yearFailures := domain.AggregateCategories(n, records)
			for _, f := range yearFailures {
				logger.Warn("catchment rejected", "catchment", f.Unit, "nutrient", n, "error", f.Err)
			}
			p.metrics.YearsLoaded.WithLabelValues(string(n)).Inc()
			p.metrics.CatchmentRows.WithLabelValues(string(n)).Add(float64(len(yearRows)))
			p.metrics.SchemaMismatches.WithLabelValues(string(n)).Add(float64(len(yearFailures)))
			p.metrics.YearLoadDuration.Observe(time.Since(start).Seconds())

			mu.Lock()
			rows = append(rows, yearRows...)
			failures = append(failures, yearFailures...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, failures, err
	}

	slices.SortFunc(rows, func(a, b domain.CategoryRow) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return strings.Compare(a.CatchmentID, b.CatchmentID)
	})
	slices.SortFunc(failures, func(a, b domain.Failure) int { return strings.Compare(a.Unit, b.Unit) })
	return rows, failures, nil
}

// aggregateRegions sums rows into every region in parallel. The result is
// indexed like p.opts.Regions. A region/year with a rejected member
// catchment is left out and returned as a failure.
func (p *Pipeline) aggregateRegions(ctx context.Context, logger *slog.Logger, n domain.Nutrient, rows []domain.CategoryRow, rejected []domain.Failure) ([][]domain.RegionYearAggregate, []domain.Failure, error) {
	out := make([][]domain.RegionYearAggregate, len(p.opts.Regions))
	perRegion := make([][]domain.Failure, len(p.opts.Regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, region := range p.opts.Regions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i], perRegion[i] = domain.AggregateRegion(region, n, rows, rejected)
			p.metrics.RegionsAggregated.WithLabelValues(string(n)).Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var failures []domain.Failure
	for _, fs := range perRegion {
		for _, f := range fs {
			logger.Warn("region year incomplete", "unit", f.Unit, "nutrient", n, "error", f.Err)
		}
		failures = append(failures, fs...)
	}
	return out, failures, nil
}

// buildTable reconciles a section when it has a cutoff and legacy tables are
// configured, and otherwise returns the model rows as they are.
func (p *Pipeline) buildTable(section domain.Section, rows []domain.SeriesRow) (domain.Table, *domain.ReconciledSeries, error) {
	if p.reconciler == nil || section.CutoffYear == 0 {
		return domain.Table{Section: section, Rows: rows}, nil, nil
	}

	series, err := p.reconciler.Reconcile(section, rows)
	n := string(section.Nutrient)
	if err != nil {
		p.metrics.SeriesFailed.WithLabelValues(n).Inc()
		return domain.Table{}, &series, err
	}
	p.metrics.SeriesReconciled.WithLabelValues(n).Inc()
	return domain.Table{Section: section, Rows: series.Rows, Reconciled: true}, &series, nil
}

// write hands a table to every sink. A sink failure is recorded and does not
// stop the other sinks.
func (p *Pipeline) write(ctx context.Context, logger *slog.Logger, t domain.Table) []domain.Failure {
	var failures []domain.Failure
	for _, s := range p.sinks {
		if err := s.Sink.WriteTable(ctx, t); err != nil {
			logger.Error("write table failed", "sink", s.Name, "heading", t.Section.Heading(), "error", err)
			p.metrics.SinkErrors.WithLabelValues(s.Name).Inc()
			failures = append(failures, domain.Failure{
				Stage: domain.StageWrite, Unit: s.Name + ":" + t.Section.Heading(), Err: err,
			})
			continue
		}
		p.metrics.TablesWritten.WithLabelValues(s.Name).Inc()
	}
	return failures
}

func failureKind(f domain.Failure) string {
	switch f.Kind() {
	case domain.ErrDataUnavailable:
		return "data_unavailable"
	case domain.ErrSchemaMismatch:
		return "schema_mismatch"
	default:
		return "other"
	}
}
