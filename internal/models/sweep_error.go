package models

import (
	"context"
	"time"
)

// SweepError records a failure that occurred while checking one tracked
// account during a sweep, persisted for later inspection.
type SweepError struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"account_id"`
	Platform   Platform   `json:"platform"`
	ErrorType  string     `json:"error_type"` // taxonomy code, e.g. "upstream_rate_limited"
	URL        string     `json:"url,omitempty"`
	ErrorMsg   string     `json:"error_msg"`
	CreatedAt  time.Time  `json:"created_at"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// SweepErrorRepository defines persistence operations for sweep errors.
type SweepErrorRepository interface {
	// Record stores a new sweep error.
	Record(ctx context.Context, sweepErr *SweepError) error

	// ListUnresolved returns unresolved errors, newest first.
	ListUnresolved(ctx context.Context, limit int) ([]*SweepError, error)

	// MarkResolved flags an error as handled.
	MarkResolved(ctx context.Context, id string) error
}
