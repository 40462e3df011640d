package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "coastal_loads"

// Metrics holds the Prometheus counters, histograms, and gauges for a report run.
type Metrics struct {
	YearsLoaded       *prometheus.CounterVec // labels: nutrient
	YearLoadFailures  *prometheus.CounterVec // labels: nutrient, kind
	CatchmentRows     *prometheus.CounterVec // labels: nutrient
	SchemaMismatches  *prometheus.CounterVec // labels: nutrient
	RegionsAggregated *prometheus.CounterVec // labels: nutrient
	SeriesReconciled  *prometheus.CounterVec // labels: nutrient
	SeriesFailed      *prometheus.CounterVec // labels: nutrient
	TablesWritten     *prometheus.CounterVec // labels: sink
	SinkErrors        *prometheus.CounterVec // labels: sink

	YearLoadDuration prometheus.Histogram
	RunDuration      prometheus.Histogram
	RunRunning       prometheus.Gauge
	LastRunSuccess   prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		YearsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "years_loaded_total",
			Help:      "Model years loaded from the source.",
		}, []string{"nutrient"}),
		YearLoadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "year_load_failures_total",
			Help:      "Model years that could not be loaded, by failure kind.",
		}, []string{"nutrient", "kind"}),
		CatchmentRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catchment_rows_total",
			Help:      "Catchment/year rows aggregated into categories.",
		}, []string{"nutrient"}),
		SchemaMismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_mismatches_total",
			Help:      "Catchment/years rejected for missing or invalid raw variables.",
		}, []string{"nutrient"}),
		RegionsAggregated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_aggregated_total",
			Help:      "Region series aggregated from category rows.",
		}, []string{"nutrient"}),
		SeriesReconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_reconciled_total",
			Help:      "Series merged with legacy tables.",
		}, []string{"nutrient"}),
		SeriesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_failed_total",
			Help:      "Series that failed reconciliation.",
		}, []string{"nutrient"}),
		TablesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tables_written_total",
			Help:      "Report tables written, by sink.",
		}, []string{"sink"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Report tables a sink failed to write.",
		}, []string{"sink"}),
		YearLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "year_load_duration_seconds",
			Help:      "Duration of loading and aggregating one model year.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete report run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		RunRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_running",
			Help:      "1 while a report run is active, 0 otherwise.",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last run finished without failures, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.YearsLoaded,
		m.YearLoadFailures,
		m.CatchmentRows,
		m.SchemaMismatches,
		m.RegionsAggregated,
		m.SeriesReconciled,
		m.SeriesFailed,
		m.TablesWritten,
		m.SinkErrors,
		m.YearLoadDuration,
		m.RunDuration,
		m.RunRunning,
		m.LastRunSuccess,
	}
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
