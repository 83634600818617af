package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cliptrack/cliptrack/internal/models"
	"github.com/cliptrack/cliptrack/internal/platform"
	"github.com/cliptrack/cliptrack/internal/scrape"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubClient serves canned posts and fails unknown ids with not_found.
type stubClient struct {
	p     models.Platform
	posts map[string]*models.MediaPost
}

func (c *stubClient) Platform() models.Platform { return c.p }

func (c *stubClient) FetchPost(ctx context.Context, videoID string) (*models.MediaPost, error) {
	if post, ok := c.posts[videoID]; ok {
		return post, nil
	}
	return nil, platform.NewError(platform.CodeUpstreamNotFound, "no such post")
}

func (c *stubClient) FetchUserFeed(ctx context.Context, username, cursor string) (*platform.FeedPage, error) {
	return &platform.FeedPage{}, nil
}

func newScrapeHandler() *ScrapeHandler {
	client := &stubClient{
		p: models.PlatformTikTok,
		posts: map[string]*models.MediaPost{
			"7494355764417547551": {
				ID:       "7494355764417547551",
				URL:      "https://www.tiktok.com/@creator/video/7494355764417547551",
				Platform: models.PlatformTikTok,
				Views:    42,
			},
		},
	}
	scraper := scrape.NewScraper(discardLogger(), client)
	orchestrator := scrape.NewOrchestrator(scraper, discardLogger(), scrape.OrchestratorConfig{MaxBatch: 50, ChunkSize: 5, RequestDelay: 1})
	return NewScrapeHandler(scraper, orchestrator, discardLogger())
}

func TestScrapeOne(t *testing.T) {
	h := newScrapeHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/scrape",
		strings.NewReader(`{"url": "https://www.tiktok.com/@creator/video/7494355764417547551"}`))
	rec := httptest.NewRecorder()

	h.ScrapeOne(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var post models.MediaPost
	if err := json.Unmarshal(rec.Body.Bytes(), &post); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if post.ID != "7494355764417547551" || post.Views != 42 {
		t.Errorf("post = %+v", post)
	}
}

func TestScrapeOneErrorStatuses(t *testing.T) {
	h := newScrapeHandler()

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"unrecognized host", "https://example.com/clip/1", http.StatusBadRequest},
		{"no content id", "https://www.tiktok.com/@creator", http.StatusBadRequest},
		{"upstream not found", "https://www.tiktok.com/@creator/video/1111111111111111111", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/scrape",
				strings.NewReader(`{"url": "`+tt.url+`"}`))
			rec := httptest.NewRecorder()

			h.ScrapeOne(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body["error_code"] == "" {
				t.Error("error_code missing")
			}
		})
	}
}

func TestScrapeOneRejectsBadRequests(t *testing.T) {
	h := newScrapeHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ScrapeOne(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty url: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/scrape", nil)
	rec = httptest.NewRecorder()
	h.ScrapeOne(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: status = %d", rec.Code)
	}
}

func TestScrapeBatchHandler(t *testing.T) {
	h := newScrapeHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/scrape/batch",
		strings.NewReader(`{"urls": ["https://www.tiktok.com/@creator/video/7494355764417547551", "https://example.com/clip/1"]}`))
	rec := httptest.NewRecorder()

	h.ScrapeBatch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Results []struct {
			URL   string          `json:"url"`
			Post  json.RawMessage `json:"post"`
			Error string          `json:"error"`
			Code  string          `json:"error_code"`
		} `json:"results"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if body.Count != 2 || len(body.Results) != 2 {
		t.Fatalf("count = %d, results = %d", body.Count, len(body.Results))
	}
	if body.Results[0].Post == nil || body.Results[0].Error != "" {
		t.Errorf("results[0] = %+v", body.Results[0])
	}
	if body.Results[1].Code != string(platform.CodeUnsupportedPlatform) {
		t.Errorf("results[1].Code = %q", body.Results[1].Code)
	}
}

// fakeAccountRepo backs the CRUD handler tests.
type fakeAccountRepo struct {
	accounts map[string]*models.TrackedAccount
	stored   *models.TrackedAccount
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*models.TrackedAccount)}
}

func (r *fakeAccountRepo) Store(ctx context.Context, account *models.TrackedAccount) error {
	if account.ID == "" {
		account.ID = "generated-id"
	}
	r.accounts[account.ID] = account
	r.stored = account
	return nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id string) (*models.TrackedAccount, error) {
	return r.accounts[id], nil
}

func (r *fakeAccountRepo) GetByPlatformAndUsername(ctx context.Context, p models.Platform, username string) (*models.TrackedAccount, error) {
	return nil, nil
}

func (r *fakeAccountRepo) ListActive(ctx context.Context) ([]*models.TrackedAccount, error) {
	var out []*models.TrackedAccount
	for _, a := range r.accounts {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) ListAll(ctx context.Context) ([]*models.TrackedAccount, error) {
	var out []*models.TrackedAccount
	for _, a := range r.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAccountRepo) UpdateWatermark(ctx context.Context, id, lastVideoID string, checkedAt time.Time) error {
	return nil
}

func (r *fakeAccountRepo) TouchLastChecked(ctx context.Context, id string, checkedAt time.Time) error {
	return nil
}

func (r *fakeAccountRepo) SetActive(ctx context.Context, id string, active bool) error {
	if a, ok := r.accounts[id]; ok {
		a.IsActive = active
	}
	return nil
}

func (r *fakeAccountRepo) Delete(ctx context.Context, id string) error {
	delete(r.accounts, id)
	return nil
}

func TestCreateTrackedAccount(t *testing.T) {
	repo := newFakeAccountRepo()
	h := NewTrackedAccountsHandler(repo, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/accounts",
		strings.NewReader(`{"username": "@creator", "platform": "tiktok"}`))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if repo.stored == nil {
		t.Fatal("nothing stored")
	}
	// the @ prefix is stripped and the account defaults to all-type, active
	if repo.stored.Username != "creator" {
		t.Errorf("Username = %q", repo.stored.Username)
	}
	if repo.stored.AccountType != models.AccountTypeAll || !repo.stored.IsActive {
		t.Errorf("stored = %+v", repo.stored)
	}
}

func TestCreateTrackedAccountValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing username", `{"platform": "tiktok"}`},
		{"bad platform", `{"username": "a", "platform": "vine"}`},
		{"keyword type without keyword", `{"username": "a", "platform": "tiktok", "account_type": "keyword"}`},
		{"bad account type", `{"username": "a", "platform": "tiktok", "account_type": "some"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTrackedAccountsHandler(newFakeAccountRepo(), discardLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/accounts", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.Create(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d", rec.Code)
			}
		})
	}
}

func TestListTrackedAccountsActiveOnly(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.accounts["1"] = &models.TrackedAccount{ID: "1", IsActive: true}
	repo.accounts["2"] = &models.TrackedAccount{ID: "2", IsActive: false}
	h := NewTrackedAccountsHandler(repo, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/accounts?active_only=true", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d", body.Count)
	}
}

func TestGetTrackedAccountNotFound(t *testing.T) {
	h := NewTrackedAccountsHandler(newFakeAccountRepo(), discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/missing", nil)
	rec := httptest.NewRecorder()

	h.Get(rec, req, "missing")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSetActiveRoute(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.accounts["acc-1"] = &models.TrackedAccount{ID: "acc-1", IsActive: true}
	h := NewTrackedAccountsHandler(repo, discardLogger())

	req := httptest.NewRequest(http.MethodPut, "/api/accounts/acc-1/active",
		strings.NewReader(`{"active": false}`))
	rec := httptest.NewRecorder()

	h.SetActive(rec, req, "acc-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if repo.accounts["acc-1"].IsActive {
		t.Error("account still active")
	}
}

func TestDeleteTrackedAccount(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.accounts["acc-1"] = &models.TrackedAccount{ID: "acc-1"}
	h := NewTrackedAccountsHandler(repo, discardLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/accounts/acc-1", nil)
	rec := httptest.NewRecorder()

	h.Delete(rec, req, "acc-1")

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, ok := repo.accounts["acc-1"]; ok {
		t.Error("account not deleted")
	}
}

// fakeSweepErrorRepo backs the sweep-error listing test.
type fakeSweepErrorRepo struct {
	errs []*models.SweepError
}

func (r *fakeSweepErrorRepo) Record(ctx context.Context, sweepErr *models.SweepError) error {
	r.errs = append(r.errs, sweepErr)
	return nil
}

func (r *fakeSweepErrorRepo) ListUnresolved(ctx context.Context, limit int) ([]*models.SweepError, error) {
	if limit < len(r.errs) {
		return r.errs[:limit], nil
	}
	return r.errs, nil
}

func (r *fakeSweepErrorRepo) MarkResolved(ctx context.Context, id string) error { return nil }

func TestListSweepErrors(t *testing.T) {
	repo := &fakeSweepErrorRepo{errs: []*models.SweepError{
		{ID: "e1", AccountID: "acc-1", ErrorType: "upstream_rate_limited"},
		{ID: "e2", AccountID: "acc-2", ErrorType: "timeout"},
	}}
	h := NewSweepHandler(nil, repo, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/sweep/errors?limit=1", nil)
	rec := httptest.NewRecorder()

	h.ListErrors(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d", body.Count)
	}
}
