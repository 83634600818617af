package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cliptrack/cliptrack/internal/ingestion"
	"github.com/cliptrack/cliptrack/internal/models"
	"github.com/cliptrack/cliptrack/internal/scrape"
)

// SetupRoutes configures all API routes on the mux.
func SetupRoutes(
	mux *http.ServeMux,
	scraper *scrape.Scraper,
	orchestrator *scrape.Orchestrator,
	sweeper *ingestion.Sweeper,
	accountRepo models.TrackedAccountRepository,
	sweepErrorRepo models.SweepErrorRepository,
	logger *slog.Logger,
) {
	scrapeHandler := NewScrapeHandler(scraper, orchestrator, logger)
	accountsHandler := NewTrackedAccountsHandler(accountRepo, logger)
	sweepHandler := NewSweepHandler(sweeper, sweepErrorRepo, logger)

	mux.HandleFunc("/api/scrape", scrapeHandler.ScrapeOne)
	mux.HandleFunc("/api/scrape/batch", scrapeHandler.ScrapeBatch)

	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			accountsHandler.List(w, r)
		case http.MethodPost:
			accountsHandler.Create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/accounts/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
		id, action, _ := strings.Cut(rest, "/")
		if id == "" {
			http.Error(w, "Account id required", http.StatusBadRequest)
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			accountsHandler.Get(w, r, id)
		case action == "" && r.Method == http.MethodDelete:
			accountsHandler.Delete(w, r, id)
		case action == "active" && r.Method == http.MethodPut:
			accountsHandler.SetActive(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/sweep", sweepHandler.Trigger)
	mux.HandleFunc("/api/sweep/errors", sweepHandler.ListErrors)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
}
