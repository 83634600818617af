package scrape

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cliptrack/cliptrack/internal/models"
	"github.com/cliptrack/cliptrack/internal/platform"
)

// Outcome is one batch entry's result. Exactly one of Post/Err is set; the
// output slice always has the input's length and order.
type Outcome struct {
	URL  string            `json:"url"`
	Post *models.MediaPost `json:"post,omitempty"`
	Err  error             `json:"-"`
}

// OrchestratorConfig carries the batch tunables.
type OrchestratorConfig struct {
	MaxBatch     int           // hard cap on input size; excess is truncated
	ChunkSize    int           // concurrent width for non-bulk platforms
	RequestDelay time.Duration // courtesy pause between requests/chunks
}

// DefaultOrchestratorConfig returns the production tunables.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxBatch:     50,
		ChunkSize:    5,
		RequestDelay: 500 * time.Millisecond,
	}
}

// Orchestrator fans a URL list out across the provider adapters, preferring
// the bulk endpoint where one exists and degrading to paced sequential
// fetches when it fails.
type Orchestrator struct {
	scraper *Scraper
	logger  *slog.Logger
	config  OrchestratorConfig
	pace    *rate.Limiter
}

// NewOrchestrator builds an orchestrator over the scraper.
func NewOrchestrator(scraper *Scraper, logger *slog.Logger, config OrchestratorConfig) *Orchestrator {
	if config.MaxBatch <= 0 {
		config.MaxBatch = 50
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = 5
	}
	if config.RequestDelay <= 0 {
		config.RequestDelay = 500 * time.Millisecond
	}

	return &Orchestrator{
		scraper: scraper,
		logger:  logger,
		config:  config,
		pace:    rate.NewLimiter(rate.Every(config.RequestDelay), 1),
	}
}

// bucket is one platform's slice of the input, with each entry's position in
// the original list recorded at partition time so results scatter back by
// direct index lookup.
type bucket struct {
	ids     []string
	urls    []string
	origIdx []int
}

// ScrapeBatch processes up to MaxBatch URLs and returns one outcome per input
// URL, in input order. Per-item failures never abort the rest.
func (o *Orchestrator) ScrapeBatch(ctx context.Context, urls []string) []Outcome {
	if len(urls) > o.config.MaxBatch {
		urls = urls[:o.config.MaxBatch]
	}

	results := make([]Outcome, len(urls))
	buckets := make(map[models.Platform]*bucket)

	for i, rawURL := range urls {
		results[i].URL = rawURL

		p, ok := platform.DetectPlatform(rawURL)
		if !ok {
			results[i].Err = &platform.Error{Code: platform.CodeUnsupportedPlatform, Message: "unrecognized host", URL: rawURL}
			continue
		}

		id, ok := platform.ExtractID(p, rawURL)
		if !ok {
			results[i].Err = &platform.Error{Code: platform.CodeUnparseableURL, Message: "no content id in URL", URL: rawURL}
			continue
		}

		b := buckets[p]
		if b == nil {
			b = &bucket{}
			buckets[p] = b
		}
		b.ids = append(b.ids, id)
		b.urls = append(b.urls, rawURL)
		b.origIdx = append(b.origIdx, i)
	}

	for p, b := range buckets {
		o.processBucket(ctx, p, b, results)
	}

	return results
}

func (o *Orchestrator) processBucket(ctx context.Context, p models.Platform, b *bucket, results []Outcome) {
	client, ok := o.scraper.Client(p)
	if !ok {
		for _, idx := range b.origIdx {
			results[idx].Err = &platform.Error{Code: platform.CodeUnsupportedPlatform, Message: "no client configured", URL: results[idx].URL}
		}
		return
	}

	if bulk, ok := client.(platform.BulkClient); ok && len(b.ids) > 1 {
		if o.tryBulk(ctx, bulk, b, results) {
			return
		}
		o.logger.Warn("bulk fetch degraded to sequential", "platform", p, "count", len(b.ids))
		o.sequential(ctx, p, b, results)
		return
	}

	if len(b.ids) == 1 {
		o.sequential(ctx, p, b, results)
		return
	}

	o.chunked(ctx, p, b, results)
}

// tryBulk attempts the provider's multi-id endpoint. Any error or an empty
// result set reports false so the caller degrades to the guaranteed path.
func (o *Orchestrator) tryBulk(ctx context.Context, client platform.BulkClient, b *bucket, results []Outcome) bool {
	posts, err := client.FetchPostsBulk(ctx, b.ids)
	if err != nil || len(posts) == 0 {
		return false
	}

	// Provider ordering is not guaranteed; match responses back by id.
	byID := make(map[string]*models.MediaPost, len(posts))
	for _, post := range posts {
		byID[post.ID] = post
	}

	for j, id := range b.ids {
		idx := b.origIdx[j]
		if post, ok := byID[id]; ok {
			results[idx].Post = post
		} else {
			results[idx].Err = &platform.Error{Code: platform.CodeUpstreamNotFound, Message: "missing from bulk response", URL: b.urls[j], VideoID: id}
		}
	}

	return true
}

// sequential fetches one id at a time with the courtesy pause between
// requests.
func (o *Orchestrator) sequential(ctx context.Context, p models.Platform, b *bucket, results []Outcome) {
	for j, id := range b.ids {
		if j > 0 {
			if err := o.pace.Wait(ctx); err != nil {
				o.failRemaining(b, j, results, err)
				return
			}
		}

		idx := b.origIdx[j]
		post, err := o.scraper.ScrapeID(ctx, p, id)
		if err != nil {
			results[idx].Err = err
			continue
		}
		results[idx].Post = post
	}
}

// chunked fetches fixed-size chunks concurrently, waiting for every item in a
// chunk to settle before starting the next, with a pause between chunks.
func (o *Orchestrator) chunked(ctx context.Context, p models.Platform, b *bucket, results []Outcome) {
	for start := 0; start < len(b.ids); start += o.config.ChunkSize {
		if start > 0 {
			if err := o.pace.Wait(ctx); err != nil {
				o.failRemaining(b, start, results, err)
				return
			}
		}

		end := start + o.config.ChunkSize
		if end > len(b.ids) {
			end = len(b.ids)
		}

		var wg sync.WaitGroup
		for j := start; j < end; j++ {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()

				idx := b.origIdx[j]
				post, err := o.scraper.ScrapeID(ctx, p, b.ids[j])
				if err != nil {
					results[idx].Err = err
					return
				}
				results[idx].Post = post
			}(j)
		}
		wg.Wait()
	}
}

func (o *Orchestrator) failRemaining(b *bucket, from int, results []Outcome, cause error) {
	for j := from; j < len(b.ids); j++ {
		idx := b.origIdx[j]
		if results[idx].Post == nil && results[idx].Err == nil {
			results[idx].Err = &platform.Error{Code: platform.CodeTimeout, Message: "batch cancelled", URL: b.urls[j], Err: cause}
		}
	}
}
