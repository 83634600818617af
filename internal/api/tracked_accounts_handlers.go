package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cliptrack/cliptrack/internal/models"
)

// TrackedAccountsHandler serves the tracked-account CRUD endpoints.
type TrackedAccountsHandler struct {
	repo   models.TrackedAccountRepository
	logger *slog.Logger
}

func NewTrackedAccountsHandler(repo models.TrackedAccountRepository, logger *slog.Logger) *TrackedAccountsHandler {
	return &TrackedAccountsHandler{repo: repo, logger: logger}
}

// List returns all tracked accounts.
// GET /api/accounts?active_only=true
func (h *TrackedAccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var accounts []*models.TrackedAccount
	var err error

	if r.URL.Query().Get("active_only") == "true" {
		accounts, err = h.repo.ListActive(r.Context())
	} else {
		accounts, err = h.repo.ListAll(r.Context())
	}

	if err != nil {
		h.logger.Error("failed to list tracked accounts", "error", err)
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// Create adds a new account to track.
// POST /api/accounts
// Body: {"username": "creator", "platform": "tiktok", "account_type": "keyword", "keyword": "launch, drop"}
func (h *TrackedAccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var account models.TrackedAccount
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if account.AccountType == "" {
		account.AccountType = models.AccountTypeAll
	}
	account.Username = strings.TrimPrefix(strings.TrimSpace(account.Username), "@")
	account.IsActive = true

	if err := validateTrackedAccount(&account); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Store(r.Context(), &account); err != nil {
		h.logger.Error("failed to store tracked account", "error", err)
		http.Error(w, "Failed to store account", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// Get returns one account by id.
// GET /api/accounts/{id}
func (h *TrackedAccountsHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	account, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load tracked account", "id", id, "error", err)
		http.Error(w, "Failed to load account", http.StatusInternalServerError)
		return
	}
	if account == nil {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// SetActive toggles polling for an account.
// PUT /api/accounts/{id}/active
// Body: {"active": false}
func (h *TrackedAccountsHandler) SetActive(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.repo.SetActive(r.Context(), id, req.Active); err != nil {
		h.logger.Error("failed to toggle tracked account", "id", id, "error", err)
		http.Error(w, "Failed to update account", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": req.Active})
}

// Delete removes an account.
// DELETE /api/accounts/{id}
func (h *TrackedAccountsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete tracked account", "id", id, "error", err)
		http.Error(w, "Failed to delete account", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func validateTrackedAccount(account *models.TrackedAccount) error {
	if account.Username == "" {
		return fmt.Errorf("username is required")
	}
	if !account.Platform.Valid() {
		return fmt.Errorf("platform must be one of tiktok, instagram, youtube")
	}

	switch account.AccountType {
	case models.AccountTypeAll:
		// keyword list is ignored for all-type accounts
	case models.AccountTypeKeyword:
		if strings.TrimSpace(account.Keyword) == "" {
			return fmt.Errorf("keyword is required for keyword-type accounts")
		}
	default:
		return fmt.Errorf("account_type must be 'all' or 'keyword'")
	}

	return nil
}
