// Package storage holds the object-storage collaborator contract and the
// thumbnail mirroring built on it.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cliptrack/cliptrack/internal/models"
)

// Uploader is the object-storage collaborator. Implementations live outside
// this core; only the call contract is specified here.
type Uploader interface {
	// Upload stores data under key and returns its public URL.
	Upload(ctx context.Context, data []byte, key, contentType string) (string, error)
}

// NoopUploader is used when object storage is unconfigured; mirroring becomes
// a no-op.
type NoopUploader struct{}

func (NoopUploader) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	return "", nil
}

// ThumbnailMirror copies a post's provider-hosted thumbnail into durable
// storage. Mirror failures are logged and swallowed: they must never fail the
// post-admission flow.
type ThumbnailMirror struct {
	uploader   Uploader
	httpClient *http.Client
	logger     *slog.Logger
}

// NewThumbnailMirror builds a mirror over the uploader.
func NewThumbnailMirror(uploader Uploader, logger *slog.Logger) *ThumbnailMirror {
	return &ThumbnailMirror{
		uploader:   uploader,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// Mirror downloads the post's thumbnail and uploads it under a stable key.
// On success it returns the durable URL; on any failure it logs and returns
// the original provider URL.
func (m *ThumbnailMirror) Mirror(ctx context.Context, post *models.MediaPost) string {
	if m == nil || post.ThumbnailURL == "" {
		return post.ThumbnailURL
	}

	data, contentType, err := m.download(ctx, post.ThumbnailURL)
	if err != nil {
		m.logger.Warn("thumbnail download failed, keeping provider URL",
			"platform", post.Platform,
			"video_id", post.ID,
			"error", err,
		)
		return post.ThumbnailURL
	}

	key := fmt.Sprintf("thumbnails/%s/%s%s", post.Platform, post.ID, extensionFor(post.ThumbnailURL, contentType))
	publicURL, err := m.uploader.Upload(ctx, data, key, contentType)
	if err != nil {
		m.logger.Warn("thumbnail upload failed, keeping provider URL",
			"platform", post.Platform,
			"video_id", post.ID,
			"error", err,
		)
		return post.ThumbnailURL
	}
	if publicURL == "" {
		return post.ThumbnailURL
	}

	return publicURL
}

func (m *ThumbnailMirror) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("thumbnail fetch returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	return data, contentType, nil
}

func extensionFor(url, contentType string) string {
	if ext := path.Ext(strings.SplitN(url, "?", 2)[0]); ext != "" && len(ext) <= 5 {
		return strings.ToLower(ext)
	}
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
