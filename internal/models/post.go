package models

import (
	"context"
	"time"
)

// Platform identifies the provider a post originates from.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
)

// Valid reports whether the platform is one of the supported providers.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTikTok, PlatformInstagram, PlatformYouTube:
		return true
	}
	return false
}

// MusicInfo describes the audio track attached to a post, when the provider
// exposes one.
type MusicInfo struct {
	Name   string `json:"name"`
	Author string `json:"author"`
}

// MediaPost is the canonical, platform-agnostic representation every provider
// response is normalized into. It is produced fresh per fetch and never
// mutated after construction.
type MediaPost struct {
	ID           string     `json:"id"` // platform-scoped content id
	URL          string     `json:"url"`
	Username     string     `json:"username"`
	Description  string     `json:"description"`
	Platform     Platform   `json:"platform"`
	Timestamp    time.Time  `json:"timestamp"` // post creation instant
	Views        int64      `json:"views"`
	Likes        int64      `json:"likes"`
	Comments     int64      `json:"comments"`
	Shares       int64      `json:"shares"`
	Hashtags     []string   `json:"hashtags,omitempty"` // set semantics, first-appearance order
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	Music        *MusicInfo `json:"music,omitempty"`
}

// PersistedPost is a MediaPost that passed admission and was stored. Unique on
// URL; a secondary uniqueness expectation holds on (VideoID, Platform).
type PersistedPost struct {
	ID            string     `json:"id"`
	VideoID       string     `json:"video_id"`
	URL           string     `json:"url"`
	Username      string     `json:"username"`
	Description   string     `json:"description"`
	Platform      Platform   `json:"platform"`
	PostedAt      time.Time  `json:"posted_at"`
	Views         int64      `json:"views"`
	Likes         int64      `json:"likes"`
	Comments      int64      `json:"comments"`
	Shares        int64      `json:"shares"`
	Hashtags      []string   `json:"hashtags,omitempty"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
	MusicName     string     `json:"music_name,omitempty"`
	MusicAuthor   string     `json:"music_author,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
}

// MetricsSample is one append-only snapshot of a post's counters. Timestamp is
// always bucketed by the polling interval in effect, so repeated polls inside
// one bucket coalesce at the storage layer.
type MetricsSample struct {
	VideoID   string    `json:"video_id"`
	Views     int64     `json:"views"`
	Likes     int64     `json:"likes"`
	Comments  int64     `json:"comments"`
	Shares    int64     `json:"shares"`
	Timestamp time.Time `json:"timestamp"`
}

// PostRepository defines the persistence contract for admitted posts.
type PostRepository interface {
	// GetByURL retrieves a persisted post by exact URL. Returns (nil, nil)
	// when no post matches.
	GetByURL(ctx context.Context, url string) (*PersistedPost, error)

	// GetByVideoID retrieves a persisted post by platform-scoped content id.
	// Returns (nil, nil) when no post matches.
	GetByVideoID(ctx context.Context, videoID string, platform Platform) (*PersistedPost, error)

	// Create stores a newly admitted post.
	Create(ctx context.Context, post *PersistedPost) error

	// UpdateMetrics refreshes the mutable counter fields and LastScrapedAt.
	UpdateMetrics(ctx context.Context, videoID string, platform Platform, views, likes, comments, shares int64) error

	// AppendMetricsSample records a bucketed metrics snapshot. Samples sharing
	// a (video_id, timestamp) bucket coalesce into one row.
	AppendMetricsSample(ctx context.Context, sample MetricsSample) error
}
