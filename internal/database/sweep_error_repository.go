package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/cliptrack/cliptrack/internal/models"
)

// PostgresSweepErrorRepository implements models.SweepErrorRepository.
type PostgresSweepErrorRepository struct {
	db *sql.DB
}

func NewPostgresSweepErrorRepository(db *sql.DB) *PostgresSweepErrorRepository {
	return &PostgresSweepErrorRepository{db: db}
}

func (r *PostgresSweepErrorRepository) Record(ctx context.Context, sweepErr *models.SweepError) error {
	if sweepErr.ID == "" {
		sweepErr.ID = uuid.NewString()
	}

	query := `
		INSERT INTO sweep_errors (id, account_id, platform, error_type, url, error_msg)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	return r.db.QueryRowContext(ctx, query,
		sweepErr.ID,
		sweepErr.AccountID,
		sweepErr.Platform,
		sweepErr.ErrorType,
		sweepErr.URL,
		sweepErr.ErrorMsg,
	).Scan(&sweepErr.CreatedAt)
}

func (r *PostgresSweepErrorRepository) ListUnresolved(ctx context.Context, limit int) ([]*models.SweepError, error) {
	query := `
		SELECT id, account_id, platform, error_type, url, error_msg, created_at, resolved, resolved_at
		FROM sweep_errors
		WHERE NOT resolved
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errs []*models.SweepError
	for rows.Next() {
		var e models.SweepError
		var resolvedAt sql.NullTime

		if err := rows.Scan(
			&e.ID, &e.AccountID, &e.Platform, &e.ErrorType,
			&e.URL, &e.ErrorMsg, &e.CreatedAt, &e.Resolved, &resolvedAt,
		); err != nil {
			return nil, err
		}

		if resolvedAt.Valid {
			t := resolvedAt.Time
			e.ResolvedAt = &t
		}

		errs = append(errs, &e)
	}

	return errs, rows.Err()
}

func (r *PostgresSweepErrorRepository) MarkResolved(ctx context.Context, id string) error {
	query := `UPDATE sweep_errors SET resolved = TRUE, resolved_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

var _ models.SweepErrorRepository = (*PostgresSweepErrorRepository)(nil)
