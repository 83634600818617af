// Package platform holds the provider adapters: URL/id extraction, HTTP
// clients for each provider, and the normalizers that turn raw provider
// payloads into the canonical MediaPost shape.
package platform

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/cliptrack/cliptrack/internal/models"
)

// HTTPClient abstracts the underlying transport so tests can inject an
// httptest server.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FeedPage is one page of a creator's posts, in the provider's
// reverse-chronological order.
type FeedPage struct {
	Items   []*models.MediaPost
	HasMore bool
	Cursor  string // opaque continuation token; empty means no next page
}

// Client is the per-provider adapter surface the scrapers and the account
// fetcher are built on.
type Client interface {
	// Platform identifies the provider this client talks to.
	Platform() models.Platform

	// FetchPost retrieves and normalizes one post by content id.
	FetchPost(ctx context.Context, videoID string) (*models.MediaPost, error)

	// FetchUserFeed retrieves one page of a creator's posts. An empty cursor
	// requests the first page.
	FetchUserFeed(ctx context.Context, username, cursor string) (*FeedPage, error)
}

// BulkClient is implemented by providers exposing a multi-id endpoint.
type BulkClient interface {
	Client

	// FetchPostsBulk retrieves several posts in one request.
	FetchPostsBulk(ctx context.Context, videoIDs []string) ([]*models.MediaPost, error)
}

// ErrFeedNotImplemented signals that a provider has no user-feed pagination
// yet. Callers must treat it as "not implemented", distinct from "no new
// content".
var ErrFeedNotImplemented = NewError(CodeNotImplemented, "user feed pagination not implemented")

const defaultTimeout = 30 * time.Second

// doGet issues one authenticated GET and returns the body, mapping transport
// and status failures onto the error taxonomy.
func doGet(ctx context.Context, client HTTPClient, url, bearerToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Code: CodeUpstreamFailure, Message: "build request", URL: url, Err: err}
	}
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &Error{Code: CodeTimeout, Message: "request cancelled", URL: url, Err: err}
		}
		return nil, &Error{Code: CodeUpstreamFailure, Message: "request failed", URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Code: CodeUpstreamFailure, Message: "read response", URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorFromStatus(resp.StatusCode, url, body)
	}

	return body, nil
}

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// scanHashtags pulls #word tokens out of free text, used when a provider does
// not return a structured hashtag list.
func scanHashtags(text string) []string {
	var tags []string
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		tags = append(tags, m[1])
	}
	return dedupeTags(tags)
}

// dedupeTags enforces set semantics while keeping first-appearance order.
func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0]
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
