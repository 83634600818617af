package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cliptrack/cliptrack/internal/metrics"
	"github.com/cliptrack/cliptrack/internal/models"
	"github.com/cliptrack/cliptrack/internal/platform"
	"github.com/cliptrack/cliptrack/internal/polling"
	"github.com/cliptrack/cliptrack/internal/scrape"
	"github.com/cliptrack/cliptrack/internal/storage"
)

// SweeperConfig holds the sweep tunables.
type SweeperConfig struct {
	PollInterval   time.Duration  // cadence of the ticker loop
	Width          int            // concurrent account checks
	AccountTimeout time.Duration  // budget per account check
	Cadence        models.Cadence // metrics bucketing cadence in effect
}

// DefaultSweeperConfig returns the production tunables.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		PollInterval:   5 * time.Minute,
		Width:          3,
		AccountTimeout: 90 * time.Second,
		Cadence:        models.CadenceManual,
	}
}

// SweepStats summarizes one full sweep.
type SweepStats struct {
	Checked        int `json:"checked"`
	Added          int `json:"added"`
	Duplicates     int `json:"duplicates"`
	KeywordRejects int `json:"keyword_rejects"`
	Skipped        int `json:"skipped"` // platforms without feed pagination
	Failures       int `json:"failures"`
}

// Sweeper polls every active tracked account for new content: fetch, gate,
// full scrape, persist, advance watermark. One sweep process at a time is
// assumed; concurrent sweeps can interleave watermark updates.
type Sweeper struct {
	accounts    models.TrackedAccountRepository
	posts       models.PostRepository
	sweepErrors models.SweepErrorRepository
	fetcher     *AccountFetcher
	scraper     *scrape.Scraper
	gate        *AdmissionGate
	mirror      *storage.ThumbnailMirror
	collector   *metrics.Collector
	logger      *slog.Logger
	config      SweeperConfig

	mu      sync.Mutex
	running bool
}

// NewSweeper wires the sweep pipeline together.
func NewSweeper(
	accounts models.TrackedAccountRepository,
	posts models.PostRepository,
	sweepErrors models.SweepErrorRepository,
	fetcher *AccountFetcher,
	scraper *scrape.Scraper,
	mirror *storage.ThumbnailMirror,
	collector *metrics.Collector,
	logger *slog.Logger,
	config SweeperConfig,
) *Sweeper {
	return &Sweeper{
		accounts:    accounts,
		posts:       posts,
		sweepErrors: sweepErrors,
		fetcher:     fetcher,
		scraper:     scraper,
		gate:        NewAdmissionGate(posts),
		mirror:      mirror,
		collector:   collector,
		logger:      logger,
		config:      config,
	}
}

// Start runs the ticker loop until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting sweep loop",
		"poll_interval", s.config.PollInterval,
		"width", s.config.Width,
	)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.SweepAll(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweep loop shutting down")
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return ctx.Err()

		case <-ticker.C:
			s.SweepAll(ctx)
		}
	}
}

// IsRunning reports whether the ticker loop is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SweepAll checks every active account, at most Width concurrently. A
// failure in one account never aborts the siblings; cancellation stops
// launching new checks but lets in-flight ones finish or time out on their
// own.
func (s *Sweeper) SweepAll(ctx context.Context) SweepStats {
	start := time.Now()

	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list active accounts", "error", err)
		return SweepStats{}
	}

	var (
		statsMu sync.Mutex
		stats   SweepStats
		wg      sync.WaitGroup
	)
	semaphore := make(chan struct{}, s.config.Width)

	for _, account := range accounts {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(account *models.TrackedAccount) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			result := s.CheckAccount(ctx, account)

			statsMu.Lock()
			stats.Checked++
			stats.Added += result.Added
			stats.Duplicates += result.Duplicates
			stats.KeywordRejects += result.KeywordRejects
			if result.Skipped {
				stats.Skipped++
			}
			if result.Err != nil {
				stats.Failures++
			}
			statsMu.Unlock()
		}(account)
	}

	wg.Wait()

	elapsed := time.Since(start)
	s.collector.ObserveSweep(elapsed)

	s.logger.Info("sweep finished",
		"accounts", stats.Checked,
		"added", stats.Added,
		"duplicates", stats.Duplicates,
		"keyword_rejects", stats.KeywordRejects,
		"failures", stats.Failures,
		"duration", elapsed,
	)

	return stats
}

// AccountResult summarizes one account check.
type AccountResult struct {
	Added          int
	Duplicates     int
	KeywordRejects int
	Skipped        bool
	Err            error
}

// CheckAccount polls one tracked account inside its own timeout. Timeout
// expiry is a normal, reported failure for this account only.
func (s *Sweeper) CheckAccount(ctx context.Context, account *models.TrackedAccount) AccountResult {
	ctx, cancel := context.WithTimeout(ctx, s.config.AccountTimeout)
	defer cancel()

	now := time.Now().UTC()

	candidates, err := s.fetcher.FetchNew(ctx, account)
	if err != nil {
		if errors.Is(err, platform.ErrFeedNotImplemented) {
			// Documented limitation, not a failure: stamp the attempt and
			// move on.
			s.touch(account, now)
			s.collector.ObserveAccountCheck(string(account.Platform), "skipped")
			return AccountResult{Skipped: true}
		}

		s.recordSweepError(account, "", err)
		s.touch(account, now)
		s.collector.ObserveAccountCheck(string(account.Platform), "error")
		return AccountResult{Err: err}
	}

	result := AccountResult{}

	for _, candidate := range candidates {
		if err := s.gate.Admit(ctx, candidate, account); err != nil {
			switch platform.CodeOf(err) {
			case platform.CodeDuplicate:
				result.Duplicates++
			case platform.CodeKeywordMismatch:
				result.KeywordRejects++
			default:
				s.recordSweepError(account, candidate.URL, err)
				result.Err = err
			}
			s.collector.ObserveRejection(string(platform.CodeOf(err)))
			continue
		}

		if err := s.ingestPost(ctx, candidate); err != nil {
			// Not reported as added; the gates are idempotent so the next
			// sweep retries cleanly.
			s.recordSweepError(account, candidate.URL, err)
			result.Err = err
			continue
		}

		result.Added++
		s.collector.ObserveAdmission()
	}

	// Advance the watermark to the newest item observed in this poll. The
	// fetched set is reverse-chronological, so the first item is the newest.
	if len(candidates) > 0 {
		newest := candidates[0].ID
		if err := s.accounts.UpdateWatermark(ctx, account.ID, newest, now); err != nil {
			s.logger.Error("failed to advance watermark",
				"account_id", account.ID,
				"last_video_id", newest,
				"error", err,
			)
		}
	} else {
		s.touch(account, now)
	}

	outcome := "ok"
	if result.Err != nil {
		outcome = "partial"
	}
	s.collector.ObserveAccountCheck(string(account.Platform), outcome)

	return result
}

// ingestPost runs the full single-item scrape for an admitted candidate,
// mirrors its thumbnail, persists it, and appends the first metrics sample.
func (s *Sweeper) ingestPost(ctx context.Context, candidate *models.MediaPost) error {
	full, err := s.scraper.ScrapeID(ctx, candidate.Platform, candidate.ID)
	if err != nil {
		s.collector.ObserveScrape(string(candidate.Platform), "error")
		return err
	}
	s.collector.ObserveScrape(string(candidate.Platform), "ok")

	persisted := toPersisted(full)
	persisted.ThumbnailURL = s.mirror.Mirror(ctx, full)

	if err := s.posts.Create(ctx, persisted); err != nil {
		return &platform.Error{Code: platform.CodePersistenceError, Message: "create post", URL: full.URL, VideoID: full.ID, Err: err}
	}

	bucket, err := polling.Normalize(time.Now().UTC(), polling.IntervalForCadence(s.config.Cadence))
	if err != nil {
		return &platform.Error{Code: platform.CodePersistenceError, Message: "bucket metrics timestamp", VideoID: full.ID, Err: err}
	}

	sample := models.MetricsSample{
		VideoID:   full.ID,
		Views:     full.Views,
		Likes:     full.Likes,
		Comments:  full.Comments,
		Shares:    full.Shares,
		Timestamp: bucket,
	}
	if err := s.posts.AppendMetricsSample(ctx, sample); err != nil {
		return &platform.Error{Code: platform.CodePersistenceError, Message: "append metrics sample", VideoID: full.ID, Err: err}
	}

	return nil
}

func (s *Sweeper) touch(account *models.TrackedAccount, now time.Time) {
	if err := s.accounts.TouchLastChecked(context.Background(), account.ID, now); err != nil {
		s.logger.Error("failed to stamp last_checked", "account_id", account.ID, "error", err)
	}
}

func (s *Sweeper) recordSweepError(account *models.TrackedAccount, url string, cause error) {
	if s.sweepErrors == nil {
		return
	}

	sweepErr := &models.SweepError{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Platform:  account.Platform,
		ErrorType: string(platform.CodeOf(cause)),
		URL:       url,
		ErrorMsg:  cause.Error(),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.sweepErrors.Record(context.Background(), sweepErr); err != nil {
		s.logger.Error("failed to record sweep error", "account_id", account.ID, "error", err)
	}
}

// toPersisted converts a freshly scraped post into its stored form.
func toPersisted(post *models.MediaPost) *models.PersistedPost {
	persisted := &models.PersistedPost{
		ID:           uuid.NewString(),
		VideoID:      post.ID,
		URL:          post.URL,
		Username:     post.Username,
		Description:  post.Description,
		Platform:     post.Platform,
		PostedAt:     post.Timestamp,
		Views:        post.Views,
		Likes:        post.Likes,
		Comments:     post.Comments,
		Shares:       post.Shares,
		Hashtags:     post.Hashtags,
		ThumbnailURL: post.ThumbnailURL,
	}
	if post.Music != nil {
		persisted.MusicName = post.Music.Name
		persisted.MusicAuthor = post.Music.Author
	}
	return persisted
}
