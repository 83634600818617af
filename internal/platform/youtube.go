package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cliptrack/cliptrack/internal/models"
)

const defaultYouTubeBaseURL = "https://www.googleapis.com"

// YouTubeClient talks to the YouTube Data API v3.
type YouTubeClient struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
}

// YouTubeOption configures the client.
type YouTubeOption func(*YouTubeClient)

// WithYouTubeHTTPClient injects a custom transport.
func WithYouTubeHTTPClient(c HTTPClient) YouTubeOption {
	return func(y *YouTubeClient) { y.httpClient = c }
}

// WithYouTubeBaseURL overrides the API host (used by tests).
func WithYouTubeBaseURL(u string) YouTubeOption {
	return func(y *YouTubeClient) { y.baseURL = u }
}

// NewYouTubeClient builds a client authenticated with the given API key.
func NewYouTubeClient(apiKey string, opts ...YouTubeOption) *YouTubeClient {
	c := &YouTubeClient{
		baseURL:    defaultYouTubeBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *YouTubeClient) Platform() models.Platform { return models.PlatformYouTube }

// youtubeVideosResponse is the videos.list response. Statistics counters are
// JSON strings per the Data API contract.
type youtubeVideosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
			Tags         []string `json:"tags"`
			Thumbnails   map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// thumbnailSizeOrder ranks the Data API thumbnail variants largest first.
var thumbnailSizeOrder = []string{"maxres", "standard", "high", "medium", "default"}

// FetchPost retrieves one video by id.
func (c *YouTubeClient) FetchPost(ctx context.Context, videoID string) (*models.MediaPost, error) {
	endpoint := fmt.Sprintf("%s/youtube/v3/videos?part=snippet,statistics&id=%s&key=%s",
		c.baseURL, url.QueryEscape(videoID), url.QueryEscape(c.apiKey))

	body, err := doGet(ctx, c.httpClient, endpoint, "")
	if err != nil {
		return nil, annotate(err, videoID)
	}

	var resp youtubeVideosResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Code: CodeMalformedResponse, Message: "decode videos response", VideoID: videoID, Body: string(body), Err: err}
	}

	if len(resp.Items) == 0 {
		return nil, &Error{Code: CodeUpstreamNotFound, Message: "video not found", VideoID: videoID}
	}

	item := resp.Items[0]

	var covers []string
	for _, size := range thumbnailSizeOrder {
		if t, ok := item.Snippet.Thumbnails[size]; ok {
			covers = append(covers, t.URL)
		}
	}

	publishedAt, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)

	tags := dedupeTags(item.Snippet.Tags)
	if len(tags) == 0 {
		tags = scanHashtags(item.Snippet.Description)
	}

	return &models.MediaPost{
		ID:           item.ID,
		URL:          fmt.Sprintf("https://www.youtube.com/watch?v=%s", item.ID),
		Username:     item.Snippet.ChannelTitle,
		Description:  firstString(item.Snippet.Description, item.Snippet.Title),
		Platform:     models.PlatformYouTube,
		Timestamp:    publishedAt.UTC(),
		Views:        parseCount(item.Statistics.ViewCount),
		Likes:        parseCount(item.Statistics.LikeCount),
		Comments:     parseCount(item.Statistics.CommentCount),
		Hashtags:     tags,
		ThumbnailURL: SelectThumbnail(covers),
	}, nil
}

// FetchUserFeed has no pagination implementation for YouTube yet. It reports
// ErrFeedNotImplemented so callers can tell "not implemented" apart from
// "no new content".
func (c *YouTubeClient) FetchUserFeed(ctx context.Context, username, cursor string) (*FeedPage, error) {
	return &FeedPage{}, ErrFeedNotImplemented
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
