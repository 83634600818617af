// Package scrape exposes the single-URL scraper and the multi-URL batch
// orchestrator on top of the per-provider adapters.
package scrape

import (
	"context"
	"log/slog"

	"github.com/cliptrack/cliptrack/internal/models"
	"github.com/cliptrack/cliptrack/internal/platform"
)

// Scraper resolves a user-supplied link to a platform and content id, then
// fetches and normalizes the post through the matching adapter.
type Scraper struct {
	clients map[models.Platform]platform.Client
	logger  *slog.Logger
}

// NewScraper builds a scraper over the given provider clients.
func NewScraper(logger *slog.Logger, clients ...platform.Client) *Scraper {
	byPlatform := make(map[models.Platform]platform.Client, len(clients))
	for _, c := range clients {
		byPlatform[c.Platform()] = c
	}
	return &Scraper{clients: byPlatform, logger: logger}
}

// Client returns the adapter for a platform.
func (s *Scraper) Client(p models.Platform) (platform.Client, bool) {
	c, ok := s.clients[p]
	return c, ok
}

// ScrapeURL fetches one post from a raw link.
func (s *Scraper) ScrapeURL(ctx context.Context, rawURL string) (*models.MediaPost, error) {
	p, ok := platform.DetectPlatform(rawURL)
	if !ok {
		return nil, &platform.Error{Code: platform.CodeUnsupportedPlatform, Message: "unrecognized host", URL: rawURL}
	}

	id, ok := platform.ExtractID(p, rawURL)
	if !ok {
		return nil, &platform.Error{Code: platform.CodeUnparseableURL, Message: "no content id in URL", URL: rawURL}
	}

	return s.ScrapeID(ctx, p, id)
}

// ScrapeID fetches one post by platform and content id.
func (s *Scraper) ScrapeID(ctx context.Context, p models.Platform, id string) (*models.MediaPost, error) {
	client, ok := s.clients[p]
	if !ok {
		return nil, &platform.Error{Code: platform.CodeUnsupportedPlatform, Message: "no client configured", VideoID: id}
	}

	post, err := client.FetchPost(ctx, id)
	if err != nil {
		s.logger.Warn("scrape failed",
			"platform", p,
			"video_id", id,
			"error_code", platform.CodeOf(err),
		)
		return nil, err
	}

	return post, nil
}
