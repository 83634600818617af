// Package database provides the Postgres implementations of the persistence
// contracts declared in internal/models.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Open connects to Postgres and verifies the connection.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the tables the service needs if they do not exist.
// Failures are surfaced to the caller; starting without a schema is not
// useful.
func EnsureSchema(db *sql.DB, logger *slog.Logger) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id UUID PRIMARY KEY,
			video_id TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			platform TEXT NOT NULL,
			posted_at TIMESTAMPTZ,
			views BIGINT NOT NULL DEFAULT 0,
			likes BIGINT NOT NULL DEFAULT 0,
			comments BIGINT NOT NULL DEFAULT 0,
			shares BIGINT NOT NULL DEFAULT 0,
			hashtags TEXT[] NOT NULL DEFAULT '{}',
			thumbnail_url TEXT NOT NULL DEFAULT '',
			music_name TEXT NOT NULL DEFAULT '',
			music_author TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_scraped_at TIMESTAMPTZ,
			UNIQUE (video_id, platform)
		)`,
		`CREATE TABLE IF NOT EXISTS metrics_history (
			video_id TEXT NOT NULL,
			views BIGINT NOT NULL DEFAULT 0,
			likes BIGINT NOT NULL DEFAULT 0,
			comments BIGINT NOT NULL DEFAULT 0,
			shares BIGINT NOT NULL DEFAULT 0,
			ts TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (video_id, ts)
		)`,
		`CREATE TABLE IF NOT EXISTS tracked_accounts (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL,
			platform TEXT NOT NULL,
			account_type TEXT NOT NULL DEFAULT 'all',
			keyword TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_video_id TEXT NOT NULL DEFAULT '',
			last_checked TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (platform, username)
		)`,
		`CREATE TABLE IF NOT EXISTS sweep_errors (
			id UUID PRIMARY KEY,
			account_id UUID NOT NULL,
			platform TEXT NOT NULL,
			error_type TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			error_msg TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved BOOLEAN NOT NULL DEFAULT FALSE,
			resolved_at TIMESTAMPTZ
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	logger.Info("database schema ensured")
	return nil
}
