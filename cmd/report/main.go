// Command report builds the coastal nutrient-loading tables: it loads the
// model results for every configured year, aggregates them per region,
// reconciles them with legacy tables and writes the sections to the
// configured sinks.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/coastal-loads-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/coastal-loads-etl/internal/adapter/kafka"
	"github.com/couchcryptid/coastal-loads-etl/internal/adapter/legacy"
	"github.com/couchcryptid/coastal-loads-etl/internal/adapter/output"
	"github.com/couchcryptid/coastal-loads-etl/internal/adapter/source"
	"github.com/couchcryptid/coastal-loads-etl/internal/config"
	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
	"github.com/couchcryptid/coastal-loads-etl/internal/observability"
	"github.com/couchcryptid/coastal-loads-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := config.LoadRegions(cfg.RegionsFile)
	if err != nil {
		logger.Error("failed to load regions", "error", err)
		return 1
	}

	src, closeSource, err := newSource(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open model source", "kind", cfg.SourceKind, "error", err)
		return 1
	}
	defer closeSource()

	// A nil interface, not a typed nil, disables reconciliation.
	var legacySource domain.LegacySource
	if cfg.ReconcileEnabled() {
		store, err := legacy.NewStore(cfg.LegacyDir, cfg.BaselineFile, logger)
		if err != nil {
			logger.Error("failed to open legacy tables", "dir", cfg.LegacyDir, "error", err)
			return 1
		}
		legacySource = store
		logger.Info("legacy reconciliation enabled", "dir", cfg.LegacyDir, "cutoff_year", cfg.CutoffYear)
	} else {
		logger.Info("legacy reconciliation disabled")
	}

	sinks, closeSinks, err := newSinks(cfg, logger)
	if err != nil {
		logger.Error("failed to open output sinks", "error", err)
		return 1
	}

	p := pipeline.New(src, legacySource, sinks, pipeline.Options{
		Years:      cfg.Years(),
		Nutrients:  cfg.Nutrients,
		Regions:    catalog.Regions,
		CutoffYear: cfg.CutoffYear,
		Cutoffs:    catalog.Cutoffs,
		Workers:    cfg.Workers,
	}, logger, metrics)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	res, runErr := p.Run(ctx)
	if err := closeSinks(); err != nil {
		logger.Error("sink close error", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	code := exitCode(cfg, res, runErr, logger)

	if srv != nil {
		// Keep serving health and run status until asked to stop.
		if runErr == nil {
			logger.Info("run complete, serving status until shutdown", "addr", cfg.HTTPAddr)
			<-ctx.Done()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete", "exit_code", code)
	return code
}

func exitCode(cfg *config.Config, res pipeline.Result, runErr error, logger *slog.Logger) int {
	if runErr != nil {
		logger.Error("report run aborted", "error", runErr)
		return 1
	}
	if res.OK() {
		return 0
	}
	for stage, n := range res.FailureCounts() {
		logger.Warn("report run had failures", "stage", stage, "count", n)
	}
	if cfg.AllowPartial {
		logger.Warn("partial report accepted", "failures", len(res.Failures))
		return 0
	}
	return 2
}

func newSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.Source, func(), error) {
	switch cfg.SourceKind {
	case config.SourcePostgres:
		pg, err := source.NewPostgresSource(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("model source: postgres")
		return pg, pg.Close, nil
	case config.SourceDir:
		logger.Info("model source: directory", "dir", cfg.SourceDir)
		return source.NewCSVSource(source.NewDirFetcher(cfg.SourceDir)), func() {}, nil
	default:
		fetcher := source.NewHTTPFetcher(cfg.SourceURLTemplate, cfg.SourceTimeout, logger)
		cached := source.NewCachedFetcher(fetcher, cfg.SourceCacheSize)
		logger.Info("model source: http",
			"url_template", cfg.SourceURLTemplate,
			"timeout", cfg.SourceTimeout,
			"cache_size", cfg.SourceCacheSize,
		)
		return source.NewCSVSource(cached), func() {}, nil
	}
}

func newSinks(cfg *config.Config, logger *slog.Logger) ([]pipeline.NamedSink, func() error, error) {
	csvWriter, err := output.NewCSVWriter(cfg.OutputDir)
	if err != nil {
		return nil, nil, err
	}
	sinks := []pipeline.NamedSink{{Name: "csv", Sink: csvWriter}}
	var closers []func() error

	if cfg.WorkbookPath != "" {
		wb, err := output.NewWorkbook(cfg.WorkbookPath)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pipeline.NamedSink{Name: "workbook", Sink: wb})
		closers = append(closers, wb.Close)
		logger.Info("workbook sink enabled", "path", cfg.WorkbookPath)
	}

	if len(cfg.KafkaBrokers) > 0 {
		w := kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, pipeline.NamedSink{Name: "kafka", Sink: w})
		closers = append(closers, w.Close)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}
	return sinks, closeAll, nil
}
