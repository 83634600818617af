package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cliptrack/cliptrack/internal/ingestion"
	"github.com/cliptrack/cliptrack/internal/models"
)

// SweepHandler exposes manual sweep triggering and sweep-error inspection.
type SweepHandler struct {
	sweeper        *ingestion.Sweeper
	sweepErrorRepo models.SweepErrorRepository
	logger         *slog.Logger
}

func NewSweepHandler(sweeper *ingestion.Sweeper, sweepErrorRepo models.SweepErrorRepository, logger *slog.Logger) *SweepHandler {
	return &SweepHandler{sweeper: sweeper, sweepErrorRepo: sweepErrorRepo, logger: logger}
}

// Trigger runs one full sweep synchronously and reports its stats.
// POST /api/sweep
func (h *SweepHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.sweeper.SweepAll(r.Context())
	writeJSON(w, http.StatusOK, stats)
}

// ListErrors returns unresolved sweep errors, newest first.
// GET /api/sweep/errors?limit=50
func (h *SweepHandler) ListErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	errs, err := h.sweepErrorRepo.ListUnresolved(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list sweep errors", "error", err)
		http.Error(w, "Failed to list sweep errors", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"errors": errs,
		"count":  len(errs),
	})
}
