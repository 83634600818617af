package ingestion

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cliptrack/cliptrack/internal/models"
	"github.com/cliptrack/cliptrack/internal/platform"
)

// memPostRepo is an in-memory PostRepository shared by the ingestion tests.
type memPostRepo struct {
	mu      sync.Mutex
	byURL   map[string]*models.PersistedPost
	byVid   map[string]*models.PersistedPost
	samples []models.MetricsSample
	failAll error
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{
		byURL: make(map[string]*models.PersistedPost),
		byVid: make(map[string]*models.PersistedPost),
	}
}

func vidKey(videoID string, p models.Platform) string { return string(p) + "|" + videoID }

func (r *memPostRepo) GetByURL(ctx context.Context, url string) (*models.PersistedPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	return r.byURL[url], nil
}

func (r *memPostRepo) GetByVideoID(ctx context.Context, videoID string, p models.Platform) (*models.PersistedPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	return r.byVid[vidKey(videoID, p)], nil
}

func (r *memPostRepo) Create(ctx context.Context, post *models.PersistedPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	r.byURL[post.URL] = post
	r.byVid[vidKey(post.VideoID, post.Platform)] = post
	return nil
}

func (r *memPostRepo) UpdateMetrics(ctx context.Context, videoID string, p models.Platform, views, likes, comments, shares int64) error {
	return nil
}

func (r *memPostRepo) AppendMetricsSample(ctx context.Context, sample models.MetricsSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, sample)
	return nil
}

func (r *memPostRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byURL)
}

func seedPost(r *memPostRepo, videoID string, p models.Platform, url string) {
	r.Create(context.Background(), &models.PersistedPost{ID: "row-" + videoID, VideoID: videoID, Platform: p, URL: url})
}

func TestAdmitNewPost(t *testing.T) {
	gate := NewAdmissionGate(newMemPostRepo())

	candidate := &models.MediaPost{
		ID:       "7001",
		URL:      "https://www.tiktok.com/@a/video/7001",
		Platform: models.PlatformTikTok,
	}

	if err := gate.Admit(context.Background(), candidate, nil); err != nil {
		t.Errorf("Admit: %v", err)
	}
}

func TestAdmitRejectsDuplicateURL(t *testing.T) {
	repo := newMemPostRepo()
	seedPost(repo, "7001", models.PlatformTikTok, "https://www.tiktok.com/@a/video/7001")
	gate := NewAdmissionGate(repo)

	candidate := &models.MediaPost{
		ID:       "7001",
		URL:      "https://www.tiktok.com/@a/video/7001",
		Platform: models.PlatformTikTok,
	}

	err := gate.Admit(context.Background(), candidate, nil)
	if !platform.IsCode(err, platform.CodeDuplicate) {
		t.Errorf("expected duplicate, got %v", err)
	}
}

func TestAdmitRejectsDuplicateContentID(t *testing.T) {
	repo := newMemPostRepo()
	seedPost(repo, "7001", models.PlatformTikTok, "https://www.tiktok.com/@a/video/7001")
	gate := NewAdmissionGate(repo)

	// same content reached through a different URL shape
	candidate := &models.MediaPost{
		ID:       "7001",
		URL:      "https://vm.tiktok.com/v/7001",
		Platform: models.PlatformTikTok,
	}

	err := gate.Admit(context.Background(), candidate, nil)
	if !platform.IsCode(err, platform.CodeDuplicate) {
		t.Errorf("expected duplicate, got %v", err)
	}
}

func TestAdmitSameIDDifferentPlatform(t *testing.T) {
	repo := newMemPostRepo()
	seedPost(repo, "7001", models.PlatformTikTok, "https://www.tiktok.com/@a/video/7001")
	gate := NewAdmissionGate(repo)

	candidate := &models.MediaPost{
		ID:       "7001",
		URL:      "https://www.instagram.com/reel/7001/",
		Platform: models.PlatformInstagram,
	}

	if err := gate.Admit(context.Background(), candidate, nil); err != nil {
		t.Errorf("Admit: %v", err)
	}
}

func TestAdmitKeywordGate(t *testing.T) {
	gate := NewAdmissionGate(newMemPostRepo())
	account := &models.TrackedAccount{AccountType: models.AccountTypeKeyword, Keyword: "blok"}

	match := &models.MediaPost{
		ID:          "1",
		URL:         "https://www.tiktok.com/@a/video/1",
		Platform:    models.PlatformTikTok,
		Description: "Check out this #blok drop",
	}
	if err := gate.Admit(context.Background(), match, account); err != nil {
		t.Errorf("matching post rejected: %v", err)
	}

	miss := &models.MediaPost{
		ID:          "2",
		URL:         "https://www.tiktok.com/@a/video/2",
		Platform:    models.PlatformTikTok,
		Description: "nothing here",
	}
	err := gate.Admit(context.Background(), miss, account)
	if !platform.IsCode(err, platform.CodeKeywordMismatch) {
		t.Errorf("expected keyword_mismatch, got %v", err)
	}
}

func TestAdmitAllTypeSkipsKeywordGate(t *testing.T) {
	gate := NewAdmissionGate(newMemPostRepo())
	account := &models.TrackedAccount{AccountType: models.AccountTypeAll, Keyword: "blok"}

	candidate := &models.MediaPost{
		ID:          "1",
		URL:         "https://www.tiktok.com/@a/video/1",
		Platform:    models.PlatformTikTok,
		Description: "nothing here",
	}
	if err := gate.Admit(context.Background(), candidate, account); err != nil {
		t.Errorf("Admit: %v", err)
	}
}

func TestAdmitRepositoryFailure(t *testing.T) {
	repo := newMemPostRepo()
	repo.failAll = errors.New("connection refused")
	gate := NewAdmissionGate(repo)

	candidate := &models.MediaPost{ID: "1", URL: "https://www.tiktok.com/@a/video/1", Platform: models.PlatformTikTok}

	err := gate.Admit(context.Background(), candidate, nil)
	if !platform.IsCode(err, platform.CodePersistenceError) {
		t.Errorf("expected persistence_error, got %v", err)
	}
}

func TestMatchesKeyword(t *testing.T) {
	tests := []struct {
		name        string
		description string
		keywords    string
		want        bool
	}{
		{"hashtag form", "Check out this #blok drop", "blok", true},
		{"plain substring", "the blok collection is live", "blok", true},
		{"mention form", "shoutout to @blok today", "blok", true},
		{"no match", "nothing here", "blok", false},
		{"second term matches", "big blok energy", "foo, blok", true},
		{"no term matches", "plain text", "foo, bar", false},
		{"case insensitive", "BLOK is back", "blok", true},
		{"uppercase keyword", "blok is back", "BLOK", true},
		{"empty keyword list", "anything", "", false},
		{"blank terms skipped", "anything", " , ,", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesKeyword(tt.description, tt.keywords); got != tt.want {
				t.Errorf("MatchesKeyword(%q, %q) = %v, want %v", tt.description, tt.keywords, got, tt.want)
			}
		})
	}
}
