package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cliptrack/cliptrack/internal/models"
)

const defaultTikTokBaseURL = "https://api.tikscrape.io"

// tiktokEnvelopePaths: newer endpoint versions wrap the post under
// data.aweme_detail, older ones under itemInfo.itemStruct or directly under
// data.
var tiktokPostEnvelope = [][]string{
	{"data", "aweme_detail"},
	{"aweme_detail"},
	{"data", "itemInfo", "itemStruct"},
	{"itemInfo", "itemStruct"},
	{"data"},
}

var tiktokFeedEnvelope = [][]string{
	{"data"},
	{"itemList"},
}

var tiktokBulkEnvelope = [][]string{
	{"data", "aweme_list"},
	{"aweme_list"},
	{"data", "itemList"},
}

// TikTokClient talks to the TikTok scraping API.
type TikTokClient struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
}

// TikTokOption configures the client.
type TikTokOption func(*TikTokClient)

// WithTikTokHTTPClient injects a custom transport.
func WithTikTokHTTPClient(c HTTPClient) TikTokOption {
	return func(t *TikTokClient) { t.httpClient = c }
}

// WithTikTokBaseURL overrides the API host (used by tests).
func WithTikTokBaseURL(u string) TikTokOption {
	return func(t *TikTokClient) { t.baseURL = u }
}

// NewTikTokClient builds a client authenticated with the given bearer key.
func NewTikTokClient(apiKey string, opts ...TikTokOption) *TikTokClient {
	c := &TikTokClient{
		baseURL:    defaultTikTokBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TikTokClient) Platform() models.Platform { return models.PlatformTikTok }

// tiktokPost is the provider payload. Field pairs cover the snake_case and
// camelCase shapes different endpoint versions return.
type tiktokPost struct {
	AwemeID    string      `json:"aweme_id"`
	ID         string      `json:"id"`
	Desc       string      `json:"desc"`
	CreateTime int64       `json:"create_time"`
	CreateAlt  int64       `json:"createTime"`
	Author     struct {
		UniqueID  string `json:"unique_id"`
		UniqueAlt string `json:"uniqueId"`
		Nickname  string `json:"nickname"`
	} `json:"author"`
	Statistics tiktokStats `json:"statistics"`
	Stats      tiktokStats `json:"stats"`
	Video      struct {
		Cover        tiktokImage `json:"cover"`
		OriginCover  tiktokImage `json:"origin_cover"`
		DynamicCover tiktokImage `json:"dynamic_cover"`
	} `json:"video"`
	Music struct {
		Title     string `json:"title"`
		Author    string `json:"author"`
		AuthorAlt string `json:"authorName"`
	} `json:"music"`
	TextExtra []struct {
		HashtagName string `json:"hashtag_name"`
		HashtagAlt  string `json:"hashtagName"`
	} `json:"text_extra"`
	ChaList []struct {
		ChaName string `json:"cha_name"`
	} `json:"cha_list"`
}

type tiktokStats struct {
	PlayCount    looseString `json:"play_count"`
	PlayAlt      looseString `json:"playCount"`
	DiggCount    looseString `json:"digg_count"`
	DiggAlt      looseString `json:"diggCount"`
	CommentCount looseString `json:"comment_count"`
	CommentAlt   looseString `json:"commentCount"`
	ShareCount   looseString `json:"share_count"`
	ShareAlt     looseString `json:"shareCount"`
}

type tiktokImage struct {
	URLList []string `json:"url_list"`
	URLAlt  []string `json:"urlList"`
}

func (i tiktokImage) urls() []string {
	if len(i.URLList) > 0 {
		return i.URLList
	}
	return i.URLAlt
}

// FetchPost retrieves one post by aweme id.
func (c *TikTokClient) FetchPost(ctx context.Context, videoID string) (*models.MediaPost, error) {
	endpoint := fmt.Sprintf("%s/api/post/detail?video_id=%s", c.baseURL, url.QueryEscape(videoID))

	body, err := doGet(ctx, c.httpClient, endpoint, c.apiKey)
	if err != nil {
		return nil, annotate(err, videoID)
	}

	raw, ok := unwrapEnvelope(body, tiktokPostEnvelope)
	if !ok {
		return nil, &Error{Code: CodeMalformedResponse, Message: "no known envelope field", VideoID: videoID, Body: string(body)}
	}

	var payload tiktokPost
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &Error{Code: CodeMalformedResponse, Message: "decode post payload", VideoID: videoID, Body: string(body), Err: err}
	}

	return normalizeTikTok(payload, videoID), nil
}

// FetchPostsBulk retrieves several posts from the multi-id endpoint. Provider
// ordering is not guaranteed to match the request order.
func (c *TikTokClient) FetchPostsBulk(ctx context.Context, videoIDs []string) ([]*models.MediaPost, error) {
	endpoint := fmt.Sprintf("%s/api/post/detail/batch?video_ids=%s", c.baseURL, url.QueryEscape(strings.Join(videoIDs, ",")))

	body, err := doGet(ctx, c.httpClient, endpoint, c.apiKey)
	if err != nil {
		return nil, err
	}

	raw, ok := unwrapEnvelope(body, tiktokBulkEnvelope)
	if !ok {
		return nil, &Error{Code: CodeMalformedResponse, Message: "no known envelope field", Body: string(body)}
	}

	var payloads []tiktokPost
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return nil, &Error{Code: CodeMalformedResponse, Message: "decode bulk payload", Body: string(body), Err: err}
	}

	posts := make([]*models.MediaPost, 0, len(payloads))
	for _, p := range payloads {
		posts = append(posts, normalizeTikTok(p, ""))
	}
	return posts, nil
}

// tiktokFeedPage is the user-posts page payload.
type tiktokFeedPage struct {
	Videos     []tiktokPost `json:"videos"`
	ItemList   []tiktokPost `json:"itemList"`
	AwemeList  []tiktokPost `json:"aweme_list"`
	HasMore    bool         `json:"hasMore"`
	HasMoreAlt bool         `json:"has_more"`
	Cursor     looseString  `json:"cursor"`
	MaxCursor  looseString  `json:"max_cursor"`
}

// FetchUserFeed retrieves one page of a creator's posts.
func (c *TikTokClient) FetchUserFeed(ctx context.Context, username, cursor string) (*FeedPage, error) {
	endpoint := fmt.Sprintf("%s/api/user/posts?username=%s", c.baseURL, url.QueryEscape(username))
	if cursor != "" {
		endpoint += "&cursor=" + url.QueryEscape(cursor)
	}

	body, err := doGet(ctx, c.httpClient, endpoint, c.apiKey)
	if err != nil {
		return nil, err
	}

	raw, ok := unwrapEnvelope(body, tiktokFeedEnvelope)
	if !ok {
		raw = body
	}

	var page tiktokFeedPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, &Error{Code: CodeMalformedResponse, Message: "decode feed payload", Body: string(body), Err: err}
	}

	payloads := page.Videos
	if len(payloads) == 0 {
		payloads = page.ItemList
	}
	if len(payloads) == 0 {
		payloads = page.AwemeList
	}

	items := make([]*models.MediaPost, 0, len(payloads))
	for _, p := range payloads {
		items = append(items, normalizeTikTok(p, ""))
	}

	return &FeedPage{
		Items:   items,
		HasMore: page.HasMore || page.HasMoreAlt,
		Cursor:  firstString(page.Cursor.String(), page.MaxCursor.String()),
	}, nil
}

// normalizeTikTok converts the provider payload into the canonical shape.
// requestedID backfills the id when the payload omits it.
func normalizeTikTok(p tiktokPost, requestedID string) *models.MediaPost {
	id := firstString(p.AwemeID, p.ID, requestedID)
	username := firstString(p.Author.UniqueID, p.Author.UniqueAlt, p.Author.Nickname)

	var tags []string
	for _, te := range p.TextExtra {
		tags = append(tags, firstString(te.HashtagName, te.HashtagAlt))
	}
	for _, ch := range p.ChaList {
		tags = append(tags, ch.ChaName)
	}

	var covers []string
	covers = append(covers, p.Video.Cover.urls()...)
	covers = append(covers, p.Video.OriginCover.urls()...)
	covers = append(covers, p.Video.DynamicCover.urls()...)

	var music *models.MusicInfo
	if p.Music.Title != "" {
		music = &models.MusicInfo{
			Name:   p.Music.Title,
			Author: firstString(p.Music.Author, p.Music.AuthorAlt),
		}
	}

	return &models.MediaPost{
		ID:           id,
		URL:          fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", username, id),
		Username:     username,
		Description:  p.Desc,
		Platform:     models.PlatformTikTok,
		Timestamp:    time.Unix(firstInt64(p.CreateTime, p.CreateAlt), 0).UTC(),
		Views:        firstInt64(p.Statistics.PlayCount.Int64(), p.Stats.PlayCount.Int64(), p.Stats.PlayAlt.Int64()),
		Likes:        firstInt64(p.Statistics.DiggCount.Int64(), p.Stats.DiggCount.Int64(), p.Stats.DiggAlt.Int64()),
		Comments:     firstInt64(p.Statistics.CommentCount.Int64(), p.Stats.CommentCount.Int64(), p.Stats.CommentAlt.Int64()),
		Shares:       firstInt64(p.Statistics.ShareCount.Int64(), p.Stats.ShareCount.Int64(), p.Stats.ShareAlt.Int64()),
		Hashtags:     dedupeTags(tags),
		ThumbnailURL: SelectThumbnail(covers),
		Music:        music,
	}
}

// annotate stamps the requested video id onto a taxonomy error.
func annotate(err error, videoID string) error {
	if perr, ok := err.(*Error); ok && perr.VideoID == "" {
		perr.VideoID = videoID
	}
	return err
}
