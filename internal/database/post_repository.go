package database

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/cliptrack/cliptrack/internal/models"
)

// PostgresPostRepository implements models.PostRepository.
type PostgresPostRepository struct {
	db *sql.DB
}

func NewPostgresPostRepository(db *sql.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

const postColumns = `id, video_id, url, username, description, platform, posted_at,
	views, likes, comments, shares, hashtags, thumbnail_url,
	music_name, music_author, created_at, last_scraped_at`

func (r *PostgresPostRepository) GetByURL(ctx context.Context, url string) (*models.PersistedPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE url = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, url))
}

func (r *PostgresPostRepository) GetByVideoID(ctx context.Context, videoID string, platform models.Platform) (*models.PersistedPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE video_id = $1 AND platform = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, videoID, platform))
}

func (r *PostgresPostRepository) Create(ctx context.Context, post *models.PersistedPost) error {
	query := `
		INSERT INTO posts
		(id, video_id, url, username, description, platform, posted_at,
		 views, likes, comments, shares, hashtags, thumbnail_url,
		 music_name, music_author)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`

	var postedAt any
	if !post.PostedAt.IsZero() {
		postedAt = post.PostedAt
	}

	return r.db.QueryRowContext(ctx, query,
		post.ID,
		post.VideoID,
		post.URL,
		post.Username,
		post.Description,
		post.Platform,
		postedAt,
		post.Views,
		post.Likes,
		post.Comments,
		post.Shares,
		pq.Array(post.Hashtags),
		post.ThumbnailURL,
		post.MusicName,
		post.MusicAuthor,
	).Scan(&post.CreatedAt)
}

func (r *PostgresPostRepository) UpdateMetrics(ctx context.Context, videoID string, platform models.Platform, views, likes, comments, shares int64) error {
	query := `
		UPDATE posts SET
			views = $3, likes = $4, comments = $5, shares = $6,
			last_scraped_at = NOW()
		WHERE video_id = $1 AND platform = $2
	`

	_, err := r.db.ExecContext(ctx, query, videoID, platform, views, likes, comments, shares)
	return err
}

// AppendMetricsSample records one bucketed snapshot. Samples landing in the
// same bucket coalesce: the later observation wins.
func (r *PostgresPostRepository) AppendMetricsSample(ctx context.Context, sample models.MetricsSample) error {
	query := `
		INSERT INTO metrics_history (video_id, views, likes, comments, shares, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (video_id, ts)
		DO UPDATE SET
			views = EXCLUDED.views,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares
	`

	_, err := r.db.ExecContext(ctx, query,
		sample.VideoID, sample.Views, sample.Likes, sample.Comments, sample.Shares, sample.Timestamp)
	return err
}

func (r *PostgresPostRepository) scanOne(row *sql.Row) (*models.PersistedPost, error) {
	var post models.PersistedPost
	var postedAt, lastScrapedAt sql.NullTime
	var hashtags pq.StringArray

	err := row.Scan(
		&post.ID,
		&post.VideoID,
		&post.URL,
		&post.Username,
		&post.Description,
		&post.Platform,
		&postedAt,
		&post.Views,
		&post.Likes,
		&post.Comments,
		&post.Shares,
		&hashtags,
		&post.ThumbnailURL,
		&post.MusicName,
		&post.MusicAuthor,
		&post.CreatedAt,
		&lastScrapedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	post.Hashtags = []string(hashtags)
	if postedAt.Valid {
		post.PostedAt = postedAt.Time
	}
	if lastScrapedAt.Valid {
		t := lastScrapedAt.Time
		post.LastScrapedAt = &t
	}

	return &post, nil
}

var _ models.PostRepository = (*PostgresPostRepository)(nil)
