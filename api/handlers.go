/*
handlers.go - HTTP API handlers for the production simulation service

PURPOSE:
  Exposes the simulation engine via REST API. Handles HTTP request and
  response, JSON serialization, and delegates to the scenario factory,
  the engine and the repository.

ENDPOINTS:
  Health:
    GET    /health                     Repository ping

  Catalog:
    GET    /api/catalog                Stored catalog as a document

  Simulations:
    POST   /api/simulations            Run synchronously, return the report

  Runs:
    POST   /api/runs                   Queue a run (202)
    GET    /api/runs                   List runs (?status=&limit=)
    GET    /api/runs/{id}              Run status, report once completed
    GET    /api/runs/{id}/export.xlsx  Report workbook

  Scenarios (scenarios.go):
    GET    /api/scenarios              List demo presets
    POST   /api/scenarios/{name}/load  Write a preset's catalog and order

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Repo: catalog, orders and runs (sqlite or postgres)
  - Factory: document to scenario conversion with service defaults
  - Queue: background runs
  - Metrics: optional Prometheus collectors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, invalid scenario (production.ConfigError)
  - 404: Unknown order, run or preset
  - 409: Run not finished (export)
  - 503: Run queue full or stopped
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - runqueue.go: Background execution
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/production-engine/engine"
	"github.com/warp/production-engine/factory"
	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
	"github.com/warp/production-engine/report"
)

const maxBodyBytes = 4 << 20

// Repository is the persistence the API needs. store/sqlite and
// store/postgres both satisfy it.
type Repository interface {
	production.Loader
	SaveCatalog(ctx context.Context, c *production.Catalog) error
	SaveOrder(ctx context.Context, o *production.Order) error
	SaveRun(ctx context.Context, r production.Run) error
	GetRun(ctx context.Context, id string) (*production.Run, error)
	ListRuns(ctx context.Context, status production.RunStatus, limit int) ([]production.Run, error)
	Ping(ctx context.Context) error
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Repo    Repository
	Factory *factory.ScenarioFactory
	Queue   *RunQueue
	Metrics *Metrics
	Logger  *zap.Logger
}

// NewHandler creates a handler. The queue is not started.
func NewHandler(repo Repository, f *factory.ScenarioFactory, queue *RunQueue, metrics *Metrics, logger *zap.Logger) *Handler {
	if f == nil {
		f = factory.NewScenarioFactory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, Factory: f, Queue: queue, Metrics: metrics, Logger: logger}
}

// Health reports whether the repository answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Repository unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// CATALOG
// =============================================================================

// GetCatalog returns the stored catalog in scenario-document form.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := h.Repo.LoadCatalog(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToCatalogDocument(c))
}

// =============================================================================
// SIMULATIONS
// =============================================================================

// Simulate runs a scenario in the request and returns its report.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	req, _, err := decodeSimulationRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	sc, err := h.resolveScenario(r.Context(), req)
	if err != nil {
		writeDomainError(w, "Invalid scenario", err)
		return
	}

	started := time.Now()
	rep, res, err := report.Simulate(r.Context(), sc, engine.Options{Logger: h.Logger})
	if rep == nil {
		h.Metrics.ObserveFailure(ModeSync)
		writeError(w, http.StatusInternalServerError, "Simulation failed", err)
		return
	}
	h.Metrics.ObserveRun(ModeSync, res.Status, res.TotalHours, time.Since(started))
	if err != nil {
		h.Logger.Warn("simulation ended early", zap.String("scenario", sc.Name), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, rep)
}

// =============================================================================
// RUNS
// =============================================================================

// SubmitRun validates the scenario and queues it.
func (h *Handler) SubmitRun(w http.ResponseWriter, r *http.Request) {
	req, raw, err := decodeSimulationRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	sc, err := h.resolveScenario(r.Context(), req)
	if err != nil {
		writeDomainError(w, "Invalid scenario", err)
		return
	}
	if h.Queue == nil {
		writeError(w, http.StatusServiceUnavailable, "Run queue disabled", ErrQueueClosed)
		return
	}

	run, err := h.Queue.Submit(r.Context(), sc, string(raw))
	if err != nil {
		writeDomainError(w, "Failed to queue run", err)
		return
	}
	writeJSON(w, http.StatusAccepted, toRunDTO(run, false))
}

// ListRuns returns runs newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	status := production.RunStatus(r.URL.Query().Get("status"))
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Repo.ListRuns(r.Context(), status, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns one run with its report when available.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Repo.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Run not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run, true))
}

// ExportRun streams the report of a completed run as an XLSX workbook.
func (h *Handler) ExportRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Repo.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Run not found", err)
		return
	}
	if run.Status != production.RunCompleted || run.ResultJSON == "" {
		writeError(w, http.StatusConflict, fmt.Sprintf("Run is %s", run.Status), nil)
		return
	}

	var rep report.Report
	if err := json.Unmarshal([]byte(run.ResultJSON), &rep); err != nil {
		writeError(w, http.StatusInternalServerError, "Stored result is unreadable", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="run-%s.xlsx"`, run.ID))
	if err := rep.WriteXLSX(w); err != nil {
		h.Logger.Error("xlsx export failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// =============================================================================
// SCENARIO RESOLUTION
// =============================================================================

func decodeSimulationRequest(w http.ResponseWriter, r *http.Request) (SimulationRequest, []byte, error) {
	var req SimulationRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return req, nil, err
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, nil, err
	}

	sources := 0
	for _, set := range []bool{req.Preset != "", req.Scenario != nil, req.OrderID != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return req, nil, errors.New("exactly one of preset, scenario or order_id is required")
	}
	return req, raw, nil
}

func (h *Handler) resolveScenario(ctx context.Context, req SimulationRequest) (*production.Scenario, error) {
	switch {
	case req.Preset != "":
		doc, ok := factory.PresetDocument(req.Preset)
		if !ok {
			return nil, fmt.Errorf("preset %s: %w", req.Preset, generic.ErrEntityNotFound)
		}
		if req.Settings != nil {
			doc.Settings = req.Settings
		}
		return h.Factory.FromDocument(doc)

	case req.Scenario != nil:
		doc := *req.Scenario
		if req.Settings != nil {
			doc.Settings = req.Settings
		}
		return h.Factory.FromDocument(doc)

	default:
		settings, err := h.Factory.Settings(req.Settings)
		if err != nil {
			return nil, err
		}
		return production.LoadScenario(ctx, h.Repo, req.OrderID, settings)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error chain.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := errorStatus(err)
	resp := ErrorResponse{Error: message, Details: err.Error()}
	var ce *production.ConfigError
	if errors.As(err, &ce) {
		resp.Code = "invalid_" + ce.Entity
	}
	writeJSON(w, status, resp)
}

func errorStatus(err error) int {
	switch {
	case production.IsConfigError(err):
		return http.StatusBadRequest
	case errors.Is(err, generic.ErrEntityNotFound):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrDuplicateIdempotencyKey):
		return http.StatusConflict
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrQueueClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
