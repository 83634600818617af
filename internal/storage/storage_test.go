package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cliptrack/cliptrack/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureUploader records the last upload and returns a fixed public URL.
type captureUploader struct {
	key         string
	contentType string
	data        []byte
	err         error
}

func (u *captureUploader) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.key = key
	u.contentType = contentType
	u.data = data
	return "https://cdn.cliptrack.example/" + key, nil
}

func TestMirrorUploadsThumbnail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	uploader := &captureUploader{}
	m := NewThumbnailMirror(uploader, discardLogger())

	post := &models.MediaPost{
		ID:           "7001",
		Platform:     models.PlatformTikTok,
		ThumbnailURL: srv.URL + "/cover.jpg?expires=123",
	}

	got := m.Mirror(context.Background(), post)

	if got != "https://cdn.cliptrack.example/thumbnails/tiktok/7001.jpg" {
		t.Errorf("Mirror = %q", got)
	}
	if uploader.key != "thumbnails/tiktok/7001.jpg" {
		t.Errorf("key = %q", uploader.key)
	}
	if uploader.contentType != "image/jpeg" || string(uploader.data) != "jpeg-bytes" {
		t.Errorf("upload = %q %q", uploader.contentType, uploader.data)
	}
}

func TestMirrorKeepsProviderURLOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	m := NewThumbnailMirror(&captureUploader{}, discardLogger())

	post := &models.MediaPost{ID: "7001", Platform: models.PlatformTikTok, ThumbnailURL: srv.URL + "/cover.jpg"}
	if got := m.Mirror(context.Background(), post); got != post.ThumbnailURL {
		t.Errorf("Mirror = %q", got)
	}
}

func TestMirrorKeepsProviderURLOnUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	m := NewThumbnailMirror(&captureUploader{err: errors.New("bucket gone")}, discardLogger())

	post := &models.MediaPost{ID: "7001", Platform: models.PlatformTikTok, ThumbnailURL: srv.URL + "/cover.jpg"}
	if got := m.Mirror(context.Background(), post); got != post.ThumbnailURL {
		t.Errorf("Mirror = %q", got)
	}
}

func TestMirrorNoopPaths(t *testing.T) {
	post := &models.MediaPost{ID: "7001", Platform: models.PlatformTikTok}

	var nilMirror *ThumbnailMirror
	if got := nilMirror.Mirror(context.Background(), post); got != "" {
		t.Errorf("nil mirror = %q", got)
	}

	// unconfigured uploader keeps the provider URL
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	m := NewThumbnailMirror(NoopUploader{}, discardLogger())
	post.ThumbnailURL = srv.URL + "/cover.jpg"
	if got := m.Mirror(context.Background(), post); got != post.ThumbnailURL {
		t.Errorf("noop mirror = %q", got)
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		url         string
		contentType string
		want        string
	}{
		{"https://cdn.example.com/a.JPG?x=1", "image/jpeg", ".jpg"},
		{"https://cdn.example.com/a", "image/png", ".png"},
		{"https://cdn.example.com/a", "image/webp", ".webp"},
		{"https://cdn.example.com/a", "", ".jpg"},
		{"https://cdn.example.com/a.verylongext", "image/png", ".png"},
	}

	for _, tt := range tests {
		if got := extensionFor(tt.url, tt.contentType); got != tt.want {
			t.Errorf("extensionFor(%q, %q) = %q, want %q", tt.url, tt.contentType, got, tt.want)
		}
	}
}
