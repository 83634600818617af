package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cliptrack/cliptrack/internal/platform"
	"github.com/cliptrack/cliptrack/internal/scrape"
)

// ScrapeHandler serves the on-demand scrape endpoints.
type ScrapeHandler struct {
	scraper      *scrape.Scraper
	orchestrator *scrape.Orchestrator
	logger       *slog.Logger
}

func NewScrapeHandler(scraper *scrape.Scraper, orchestrator *scrape.Orchestrator, logger *slog.Logger) *ScrapeHandler {
	return &ScrapeHandler{scraper: scraper, orchestrator: orchestrator, logger: logger}
}

// ScrapeOne fetches and normalizes a single post.
// POST /api/scrape
// Body: {"url": "https://www.tiktok.com/@user/video/123..."}
func (h *ScrapeHandler) ScrapeOne(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	post, err := h.scraper.ScrapeURL(r.Context(), req.URL)
	if err != nil {
		writeScrapeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// ScrapeBatch fetches up to the configured cap of URLs and returns one result
// per input URL, in input order.
// POST /api/scrape/batch
// Body: {"urls": ["...", "..."]}
func (h *ScrapeHandler) ScrapeBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.URLs) == 0 {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	outcomes := h.orchestrator.ScrapeBatch(r.Context(), req.URLs)

	type entry struct {
		URL   string `json:"url"`
		Post  any    `json:"post,omitempty"`
		Error string `json:"error,omitempty"`
		Code  string `json:"error_code,omitempty"`
	}

	entries := make([]entry, len(outcomes))
	for i, o := range outcomes {
		entries[i].URL = o.URL
		if o.Err != nil {
			entries[i].Error = o.Err.Error()
			entries[i].Code = string(platform.CodeOf(o.Err))
			continue
		}
		entries[i].Post = o.Post
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": entries,
		"count":   len(entries),
	})
}

// writeScrapeError maps the error taxonomy onto HTTP statuses.
func writeScrapeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway

	switch platform.CodeOf(err) {
	case platform.CodeUnparseableURL, platform.CodeUnsupportedPlatform:
		status = http.StatusBadRequest
	case platform.CodeUpstreamNotFound:
		status = http.StatusNotFound
	case platform.CodeUpstreamRateLimited:
		status = http.StatusTooManyRequests
	case platform.CodeUnauthenticated:
		status = http.StatusBadGateway
	case platform.CodeTimeout:
		status = http.StatusGatewayTimeout
	}

	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"error_code": string(platform.CodeOf(err)),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
