package models

import (
	"context"
	"time"
)

// AccountType controls which discovered posts a tracked account admits.
type AccountType string

const (
	// AccountTypeAll admits every new post from the account.
	AccountTypeAll AccountType = "all"
	// AccountTypeKeyword admits only posts whose description matches the
	// account's keyword list.
	AccountTypeKeyword AccountType = "keyword"
)

// TrackedAccount represents a creator account being polled for new content.
type TrackedAccount struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Platform    Platform    `json:"platform"`
	AccountType AccountType `json:"account_type"`
	// Keyword is a comma-separated OR-list; required iff AccountType is
	// keyword.
	Keyword  string `json:"keyword,omitempty"`
	IsActive bool   `json:"is_active"`
	// LastVideoID is the watermark: the newest content id returned by the
	// most recent poll that advanced it. Monotonic by poll, not by post
	// timestamp, since provider feed reordering can violate the latter.
	LastVideoID string     `json:"last_video_id,omitempty"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TrackedAccountRepository defines persistence operations for tracked accounts.
type TrackedAccountRepository interface {
	// Store creates or updates a tracked account.
	Store(ctx context.Context, account *TrackedAccount) error

	// GetByID retrieves an account by ID. Returns (nil, nil) on no match.
	GetByID(ctx context.Context, id string) (*TrackedAccount, error)

	// GetByPlatformAndUsername retrieves an account by platform and username.
	// Returns (nil, nil) on no match.
	GetByPlatformAndUsername(ctx context.Context, platform Platform, username string) (*TrackedAccount, error)

	// ListActive returns all accounts with IsActive set.
	ListActive(ctx context.Context) ([]*TrackedAccount, error)

	// ListAll returns every tracked account.
	ListAll(ctx context.Context) ([]*TrackedAccount, error)

	// UpdateWatermark advances LastVideoID and stamps LastChecked.
	UpdateWatermark(ctx context.Context, id, lastVideoID string, checkedAt time.Time) error

	// TouchLastChecked stamps LastChecked without moving the watermark,
	// used when a poll attempt finishes without discovering new content.
	TouchLastChecked(ctx context.Context, id string, checkedAt time.Time) error

	// SetActive enables or disables polling for an account.
	SetActive(ctx context.Context, id string, active bool) error

	// Delete removes a tracked account.
	Delete(ctx context.Context, id string) error
}
