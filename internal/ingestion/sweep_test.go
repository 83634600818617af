package ingestion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cliptrack/cliptrack/internal/models"
	"github.com/cliptrack/cliptrack/internal/platform"
	"github.com/cliptrack/cliptrack/internal/scrape"
)

// memAccountRepo is an in-memory TrackedAccountRepository.
type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*models.TrackedAccount
}

func newMemAccountRepo(accounts ...*models.TrackedAccount) *memAccountRepo {
	r := &memAccountRepo{accounts: make(map[string]*models.TrackedAccount)}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *memAccountRepo) Store(ctx context.Context, account *models.TrackedAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = account
	return nil
}

func (r *memAccountRepo) GetByID(ctx context.Context, id string) (*models.TrackedAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[id], nil
}

func (r *memAccountRepo) GetByPlatformAndUsername(ctx context.Context, p models.Platform, username string) (*models.TrackedAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Platform == p && a.Username == username {
			return a, nil
		}
	}
	return nil, nil
}

func (r *memAccountRepo) ListActive(ctx context.Context) ([]*models.TrackedAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TrackedAccount
	for _, a := range r.accounts {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAccountRepo) ListAll(ctx context.Context) ([]*models.TrackedAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TrackedAccount
	for _, a := range r.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (r *memAccountRepo) UpdateWatermark(ctx context.Context, id, lastVideoID string, checkedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.LastVideoID = lastVideoID
		a.LastChecked = &checkedAt
	}
	return nil
}

func (r *memAccountRepo) TouchLastChecked(ctx context.Context, id string, checkedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.LastChecked = &checkedAt
	}
	return nil
}

func (r *memAccountRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.IsActive = active
	}
	return nil
}

func (r *memAccountRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, id)
	return nil
}

// memSweepErrRepo is an in-memory SweepErrorRepository.
type memSweepErrRepo struct {
	mu     sync.Mutex
	errors []*models.SweepError
}

func (r *memSweepErrRepo) Record(ctx context.Context, sweepErr *models.SweepError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, sweepErr)
	return nil
}

func (r *memSweepErrRepo) ListUnresolved(ctx context.Context, limit int) ([]*models.SweepError, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors, nil
}

func (r *memSweepErrRepo) MarkResolved(ctx context.Context, id string) error { return nil }

func (r *memSweepErrRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

func testSweeperConfig() SweeperConfig {
	return SweeperConfig{
		PollInterval:   time.Minute,
		Width:          3,
		AccountTimeout: 5 * time.Second,
		Cadence:        models.CadenceTesting,
	}
}

func newTestSweeper(accounts *memAccountRepo, posts *memPostRepo, sweepErrs *memSweepErrRepo, clients ...platform.Client) *Sweeper {
	logger := discardLogger()
	scraper := scrape.NewScraper(logger, clients...)
	fetcher := NewAccountFetcher(scraper, nil, logger)
	return NewSweeper(accounts, posts, sweepErrs, fetcher, scraper, nil, nil, logger, testSweeperConfig())
}

// fullPosts makes the detail-endpoint payloads matching the given feed items.
func fullPosts(items []*models.MediaPost) map[string]*models.MediaPost {
	posts := make(map[string]*models.MediaPost, len(items))
	for _, item := range items {
		copied := *item
		copied.Views = 100
		posts[item.ID] = &copied
	}
	return posts
}

func TestSweepAllIngestsNewPosts(t *testing.T) {
	items := feedItems(models.PlatformTikTok, "7002", "7001")
	client := &feedClient{
		platform: models.PlatformTikTok,
		pages:    map[string]*platform.FeedPage{"": {Items: items}},
		posts:    fullPosts(items),
	}

	account := &models.TrackedAccount{ID: "acc-1", Username: "a", Platform: models.PlatformTikTok, AccountType: models.AccountTypeAll, IsActive: true}
	accounts := newMemAccountRepo(account)
	posts := newMemPostRepo()
	sweepErrs := &memSweepErrRepo{}

	s := newTestSweeper(accounts, posts, sweepErrs, client)
	stats := s.SweepAll(context.Background())

	if stats.Checked != 1 || stats.Added != 2 || stats.Failures != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if posts.count() != 2 {
		t.Errorf("persisted = %d", posts.count())
	}
	if len(posts.samples) != 2 {
		t.Errorf("samples = %d", len(posts.samples))
	}
	// watermark advances to the newest item of the poll
	if account.LastVideoID != "7002" {
		t.Errorf("LastVideoID = %q", account.LastVideoID)
	}
	if account.LastChecked == nil {
		t.Error("LastChecked not stamped")
	}
	if sweepErrs.count() != 0 {
		t.Errorf("sweep errors = %d", sweepErrs.count())
	}
}

func TestSweepCountsDuplicates(t *testing.T) {
	items := feedItems(models.PlatformTikTok, "7002", "7001")
	client := &feedClient{
		platform: models.PlatformTikTok,
		pages:    map[string]*platform.FeedPage{"": {Items: items}},
		posts:    fullPosts(items),
	}

	account := &models.TrackedAccount{ID: "acc-1", Username: "a", Platform: models.PlatformTikTok, AccountType: models.AccountTypeAll, IsActive: true}
	accounts := newMemAccountRepo(account)
	posts := newMemPostRepo()
	seedPost(posts, "7001", models.PlatformTikTok, items[1].URL)

	s := newTestSweeper(accounts, posts, &memSweepErrRepo{}, client)
	stats := s.SweepAll(context.Background())

	if stats.Added != 1 || stats.Duplicates != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSweepKeywordAccount(t *testing.T) {
	items := feedItems(models.PlatformTikTok, "7002", "7001")
	items[0].Description = "new #blok drop"
	items[1].Description = "unrelated clip"
	client := &feedClient{
		platform: models.PlatformTikTok,
		pages:    map[string]*platform.FeedPage{"": {Items: items}},
		posts:    fullPosts(items),
	}

	account := &models.TrackedAccount{
		ID:          "acc-1",
		Username:    "a",
		Platform:    models.PlatformTikTok,
		AccountType: models.AccountTypeKeyword,
		Keyword:     "blok",
		IsActive:    true,
	}
	accounts := newMemAccountRepo(account)
	posts := newMemPostRepo()

	s := newTestSweeper(accounts, posts, &memSweepErrRepo{}, client)
	stats := s.SweepAll(context.Background())

	if stats.Added != 1 || stats.KeywordRejects != 1 {
		t.Errorf("stats = %+v", stats)
	}
	// rejected posts still advance the watermark; the poll observed them
	if account.LastVideoID != "7002" {
		t.Errorf("LastVideoID = %q", account.LastVideoID)
	}
}

func TestSweepSkipsFeedlessPlatform(t *testing.T) {
	client := &feedClient{platform: models.PlatformYouTube, feedErr: platform.ErrFeedNotImplemented}

	account := &models.TrackedAccount{ID: "acc-1", Username: "a", Platform: models.PlatformYouTube, AccountType: models.AccountTypeAll, IsActive: true}
	accounts := newMemAccountRepo(account)
	sweepErrs := &memSweepErrRepo{}

	s := newTestSweeper(accounts, newMemPostRepo(), sweepErrs, client)
	stats := s.SweepAll(context.Background())

	if stats.Skipped != 1 || stats.Failures != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if account.LastChecked == nil {
		t.Error("LastChecked not stamped")
	}
	// a documented limitation is not an error worth recording
	if sweepErrs.count() != 0 {
		t.Errorf("sweep errors = %d", sweepErrs.count())
	}
}

func TestSweepIsolatesAccountFailures(t *testing.T) {
	okItems := feedItems(models.PlatformTikTok, "7001")
	okClient := &feedClient{
		platform: models.PlatformTikTok,
		pages:    map[string]*platform.FeedPage{"": {Items: okItems}},
		posts:    fullPosts(okItems),
	}
	badClient := &feedClient{
		platform: models.PlatformInstagram,
		feedErr:  platform.NewError(platform.CodeUpstreamServerError, "provider down"),
	}

	good := &models.TrackedAccount{ID: "acc-1", Username: "a", Platform: models.PlatformTikTok, AccountType: models.AccountTypeAll, IsActive: true}
	bad := &models.TrackedAccount{ID: "acc-2", Username: "b", Platform: models.PlatformInstagram, AccountType: models.AccountTypeAll, IsActive: true}
	accounts := newMemAccountRepo(good, bad)
	sweepErrs := &memSweepErrRepo{}

	s := newTestSweeper(accounts, newMemPostRepo(), sweepErrs, okClient, badClient)
	stats := s.SweepAll(context.Background())

	if stats.Checked != 2 || stats.Added != 1 || stats.Failures != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if sweepErrs.count() != 1 {
		t.Fatalf("sweep errors = %d", sweepErrs.count())
	}
	if sweepErrs.errors[0].AccountID != "acc-2" || sweepErrs.errors[0].ErrorType != string(platform.CodeUpstreamServerError) {
		t.Errorf("sweep error = %+v", sweepErrs.errors[0])
	}
}

func TestSweepInactiveAccountsUntouched(t *testing.T) {
	client := &feedClient{platform: models.PlatformTikTok}

	inactive := &models.TrackedAccount{ID: "acc-1", Username: "a", Platform: models.PlatformTikTok, IsActive: false}
	accounts := newMemAccountRepo(inactive)

	s := newTestSweeper(accounts, newMemPostRepo(), &memSweepErrRepo{}, client)
	stats := s.SweepAll(context.Background())

	if stats.Checked != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if inactive.LastChecked != nil {
		t.Error("inactive account was polled")
	}
}

func TestSweepNoNewContentTouchesOnly(t *testing.T) {
	client := &feedClient{
		platform: models.PlatformTikTok,
		pages:    map[string]*platform.FeedPage{"": {Items: feedItems(models.PlatformTikTok, "7001")}},
	}

	account := &models.TrackedAccount{ID: "acc-1", Username: "a", Platform: models.PlatformTikTok, AccountType: models.AccountTypeAll, IsActive: true, LastVideoID: "7001"}
	accounts := newMemAccountRepo(account)

	s := newTestSweeper(accounts, newMemPostRepo(), &memSweepErrRepo{}, client)
	stats := s.SweepAll(context.Background())

	if stats.Added != 0 || stats.Failures != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if account.LastVideoID != "7001" {
		t.Errorf("LastVideoID = %q", account.LastVideoID)
	}
	if account.LastChecked == nil {
		t.Error("LastChecked not stamped")
	}
}

func TestSweeperRejectsConcurrentStart(t *testing.T) {
	accounts := newMemAccountRepo()
	s := newTestSweeper(accounts, newMemPostRepo(), &memSweepErrRepo{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		close(started)
		s.Start(ctx)
	}()
	<-started

	// give the loop a moment to mark itself running
	deadline := time.After(time.Second)
	for !s.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("sweeper never marked running")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := s.Start(ctx); err == nil {
		t.Error("second Start did not fail")
	}
	cancel()
}
