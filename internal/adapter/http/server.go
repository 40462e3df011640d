package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
	"github.com/couchcryptid/coastal-loads-etl/internal/pipeline"
)

// RunStatus reports readiness and the outcome of the latest report run.
type RunStatus interface {
	sharedobs.ReadinessChecker
	LastRun() (pipeline.Result, bool)
}

// Server exposes health, readiness, metrics and run summary endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /runs/last routes.
func NewServer(addr string, status RunStatus, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(status))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /runs/last", handleLastRun(status))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// RunSummary is the JSON body of /runs/last.
type RunSummary struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	OK         bool             `json:"ok"`
	Tables     []TableSummary   `json:"tables"`
	Failures   []FailureSummary `json:"failures"`
}

type TableSummary struct {
	Heading    string `json:"heading"`
	File       string `json:"file"`
	Rows       int    `json:"rows"`
	FirstYear  int    `json:"first_year"`
	LastYear   int    `json:"last_year"`
	Reconciled bool   `json:"reconciled"`
}

type FailureSummary struct {
	Stage domain.Stage `json:"stage"`
	Unit  string       `json:"unit"`
	Error string       `json:"error"`
}

// NewRunSummary flattens a run result for JSON output.
func NewRunSummary(res pipeline.Result) RunSummary {
	sum := RunSummary{
		RunID:      res.RunID,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		OK:         res.OK(),
		Tables:     make([]TableSummary, 0, len(res.Tables)),
		Failures:   make([]FailureSummary, 0, len(res.Failures)),
	}
	for _, t := range res.Tables {
		ts := TableSummary{
			Heading:    t.Section.Heading(),
			File:       t.Section.FileName(),
			Rows:       len(t.Rows),
			Reconciled: t.Reconciled,
		}
		if len(t.Rows) > 0 {
			ts.FirstYear = t.Rows[0].Year
			ts.LastYear = t.Rows[len(t.Rows)-1].Year
		}
		sum.Tables = append(sum.Tables, ts)
	}
	for _, f := range res.Failures {
		sum.Failures = append(sum.Failures, FailureSummary{Stage: f.Stage, Unit: f.Unit, Error: f.Err.Error()})
	}
	return sum
}

func handleLastRun(status RunStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		res, ok := status.LastRun()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed run"})
			return
		}
		writeJSON(w, http.StatusOK, NewRunSummary(res))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort status response
}
