package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"health-data-pipeline/internal/model"
	"health-data-pipeline/internal/pipeline"
	"health-data-pipeline/internal/store"
	"health-data-pipeline/pkg/utils"
)

// RunRequest is the payload for POST /api/v1/runs.
type RunRequest struct {
	Dataset string `json:"dataset"`
	Workers int    `json:"workers,omitempty"`
	Timeout string `json:"timeout,omitempty"` // e.g. "30m"
}

// Handler serves the run API. Deps are shared by all launched runs;
// the policy store inside them is read-only.
type Handler struct {
	Deps pipeline.Deps
}

// New creates a Handler around the pipeline dependencies.
func New(deps pipeline.Deps) *Handler {
	return &Handler{Deps: deps}
}

// CreateRun launches a new dataset run
// @Summary Launch a dataset run
// @Description Start the Get → Process → Generate → Export sequence for one dataset
// @Tags runs
// @Accept json
// @Produce json
// @Param run body RunRequest true "Run parameters"
// @Success 202 {object} map[string]interface{} "Run accepted"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [post]
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if _, ok := model.Datasets[req.Dataset]; !ok {
		http.Error(w, "Unknown dataset", http.StatusBadRequest)
		return
	}

	runID := uuid.New().String()
	if err := store.SaveRun(runID, req.Dataset); err != nil {
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	deps := h.Deps
	if req.Workers != 0 {
		deps.Workers = req.Workers
	}

	ctx, cancel := context.WithTimeout(context.Background(), utils.ParseDuration(req.Timeout, 30*time.Minute))
	go func() {
		defer cancel()
		if _, err := pipeline.Run(ctx, runID, req.Dataset, deps); err != nil {
			store.SaveRunError(runID, err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":     runID,
		"dataset":    req.Dataset,
		"status":     "pending",
		"created_at": time.Now().UTC(),
	})
}

// ListRuns retrieves all runs
// @Summary List all runs
// @Description Get all pipeline runs with their current status
// @Tags runs
// @Produce json
// @Success 200 {array} store.RunSummary "List of runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// GetRun retrieves one run
// @Summary Get a run
// @Description Get one pipeline run by ID
// @Tags runs
// @Produce json
// @Param runID path string true "Run ID"
// @Success 200 {object} store.RunSummary "Run"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{runID} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run, err := store.GetRun(runID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// GetRunVerdicts retrieves the verdicts recorded for one run
// @Summary Get run verdicts
// @Description Get the exempted and rejected (country, date, metric) triples for a run
// @Tags runs
// @Produce json
// @Param runID path string true "Run ID"
// @Success 200 {array} model.Verdict "Verdicts"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{runID}/verdicts [get]
func (h *Handler) GetRunVerdicts(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	verdicts, err := store.GetVerdicts(runID)
	if err != nil {
		http.Error(w, "Failed to fetch verdicts", http.StatusInternalServerError)
		return
	}
	if verdicts == nil {
		verdicts = []model.Verdict{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(verdicts)
}
