package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cliptrack/cliptrack/internal/models"
)

const defaultInstagramBaseURL = "https://api.igscrape.io"

var instagramPostEnvelope = [][]string{
	{"data", "media"},
	{"media"},
	{"data", "items"},
	{"data"},
}

var instagramFeedEnvelope = [][]string{
	{"data", "user"},
	{"data"},
}

// InstagramClient talks to the Instagram scraping API.
type InstagramClient struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
}

// InstagramOption configures the client.
type InstagramOption func(*InstagramClient)

// WithInstagramHTTPClient injects a custom transport.
func WithInstagramHTTPClient(c HTTPClient) InstagramOption {
	return func(i *InstagramClient) { i.httpClient = c }
}

// WithInstagramBaseURL overrides the API host (used by tests).
func WithInstagramBaseURL(u string) InstagramOption {
	return func(i *InstagramClient) { i.baseURL = u }
}

// NewInstagramClient builds a client authenticated with the given bearer key.
func NewInstagramClient(apiKey string, opts ...InstagramOption) *InstagramClient {
	c := &InstagramClient{
		baseURL:    defaultInstagramBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *InstagramClient) Platform() models.Platform { return models.PlatformInstagram }

// instagramPost is the provider payload across Graph-flavored and private-API
// flavored responses.
type instagramPost struct {
	Shortcode string      `json:"shortcode"`
	Code      string      `json:"code"`
	Pk        looseString `json:"pk"`
	Caption   struct {
		Text string `json:"text"`
	} `json:"caption"`
	CaptionText   string      `json:"caption_text"`
	TakenAt       int64       `json:"taken_at"`
	TakenAtTs     int64       `json:"taken_at_timestamp"`
	User          igUser      `json:"user"`
	Owner         igUser      `json:"owner"`
	PlayCount     looseString `json:"play_count"`
	VideoViews    looseString `json:"video_view_count"`
	ViewCount     looseString `json:"view_count"`
	LikeCount     looseString `json:"like_count"`
	CommentCount  looseString `json:"comment_count"`
	ReshareCount  looseString `json:"reshare_count"`
	ShareCount    looseString `json:"share_count"`
	DisplayURL    string      `json:"display_url"`
	ThumbnailSrc  string      `json:"thumbnail_src"`
	ThumbnailURL  string      `json:"thumbnail_url"`
	ImageVersions struct {
		Candidates []struct {
			URL string `json:"url"`
		} `json:"candidates"`
	} `json:"image_versions2"`
	Hashtags []string `json:"hashtags"`
	Music    struct {
		Title      string `json:"title"`
		ArtistName string `json:"artist_name"`
	} `json:"music_metadata"`
}

type igUser struct {
	Username string `json:"username"`
}

// FetchPost retrieves one post by shortcode.
func (c *InstagramClient) FetchPost(ctx context.Context, videoID string) (*models.MediaPost, error) {
	endpoint := fmt.Sprintf("%s/api/media/info?shortcode=%s", c.baseURL, url.QueryEscape(videoID))

	body, err := doGet(ctx, c.httpClient, endpoint, c.apiKey)
	if err != nil {
		return nil, annotate(err, videoID)
	}

	raw, ok := unwrapEnvelope(body, instagramPostEnvelope)
	if !ok {
		return nil, &Error{Code: CodeMalformedResponse, Message: "no known envelope field", VideoID: videoID, Body: string(body)}
	}

	// The items-flavored envelope wraps the post in a one-element array.
	var payload instagramPost
	if err := json.Unmarshal(raw, &payload); err != nil {
		var list []instagramPost
		if lerr := json.Unmarshal(raw, &list); lerr != nil || len(list) == 0 {
			return nil, &Error{Code: CodeMalformedResponse, Message: "decode post payload", VideoID: videoID, Body: string(body), Err: err}
		}
		payload = list[0]
	}

	return normalizeInstagram(payload, videoID), nil
}

// instagramFeedPage is the user-medias page payload.
type instagramFeedPage struct {
	Items       []instagramPost `json:"items"`
	Medias      []instagramPost `json:"medias"`
	MoreAvail   bool            `json:"more_available"`
	HasNext     bool            `json:"has_next_page"`
	NextMaxID   looseString     `json:"next_max_id"`
	EndCursor   looseString     `json:"end_cursor"`
	EndCursor2  looseString     `json:"next_cursor"`
}

// FetchUserFeed retrieves one page of a creator's medias.
func (c *InstagramClient) FetchUserFeed(ctx context.Context, username, cursor string) (*FeedPage, error) {
	endpoint := fmt.Sprintf("%s/api/user/medias?username=%s", c.baseURL, url.QueryEscape(username))
	if cursor != "" {
		endpoint += "&end_cursor=" + url.QueryEscape(cursor)
	}

	body, err := doGet(ctx, c.httpClient, endpoint, c.apiKey)
	if err != nil {
		return nil, err
	}

	raw, ok := unwrapEnvelope(body, instagramFeedEnvelope)
	if !ok {
		raw = body
	}

	var page instagramFeedPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, &Error{Code: CodeMalformedResponse, Message: "decode feed payload", Body: string(body), Err: err}
	}

	payloads := page.Items
	if len(payloads) == 0 {
		payloads = page.Medias
	}

	items := make([]*models.MediaPost, 0, len(payloads))
	for _, p := range payloads {
		items = append(items, normalizeInstagram(p, ""))
	}

	return &FeedPage{
		Items:   items,
		HasMore: page.MoreAvail || page.HasNext,
		Cursor:  firstString(page.NextMaxID.String(), page.EndCursor.String(), page.EndCursor2.String()),
	}, nil
}

// normalizeInstagram converts the provider payload into the canonical shape.
func normalizeInstagram(p instagramPost, requestedID string) *models.MediaPost {
	id := firstString(p.Shortcode, p.Code, p.Pk.String(), requestedID)
	username := firstString(p.User.Username, p.Owner.Username)
	caption := firstString(p.Caption.Text, p.CaptionText)

	// Prefer the structured hashtag list; fall back to scanning the caption
	// for #word tokens.
	tags := dedupeTags(p.Hashtags)
	if len(tags) == 0 {
		tags = scanHashtags(caption)
	}

	var covers []string
	for _, cand := range p.ImageVersions.Candidates {
		covers = append(covers, cand.URL)
	}
	covers = append(covers, p.DisplayURL, p.ThumbnailSrc, p.ThumbnailURL)

	var music *models.MusicInfo
	if p.Music.Title != "" {
		music = &models.MusicInfo{Name: p.Music.Title, Author: p.Music.ArtistName}
	}

	return &models.MediaPost{
		ID:           id,
		URL:          fmt.Sprintf("https://www.instagram.com/reel/%s/", id),
		Username:     username,
		Description:  caption,
		Platform:     models.PlatformInstagram,
		Timestamp:    time.Unix(firstInt64(p.TakenAt, p.TakenAtTs), 0).UTC(),
		Views:        firstInt64(p.PlayCount.Int64(), p.VideoViews.Int64(), p.ViewCount.Int64()),
		Likes:        p.LikeCount.Int64(),
		Comments:     p.CommentCount.Int64(),
		Shares:       firstInt64(p.ReshareCount.Int64(), p.ShareCount.Int64()),
		Hashtags:     tags,
		ThumbnailURL: SelectThumbnail(covers),
		Music:        music,
	}
}
