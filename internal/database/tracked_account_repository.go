package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/cliptrack/cliptrack/internal/models"
)

// PostgresTrackedAccountRepository implements models.TrackedAccountRepository.
type PostgresTrackedAccountRepository struct {
	db *sql.DB
}

func NewPostgresTrackedAccountRepository(db *sql.DB) *PostgresTrackedAccountRepository {
	return &PostgresTrackedAccountRepository{db: db}
}

const accountColumns = `id, username, platform, account_type, keyword, is_active,
	last_video_id, last_checked, created_at, updated_at`

func (r *PostgresTrackedAccountRepository) Store(ctx context.Context, account *models.TrackedAccount) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	query := `
		INSERT INTO tracked_accounts
		(id, username, platform, account_type, keyword, is_active, last_video_id, last_checked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (platform, username)
		DO UPDATE SET
			account_type = EXCLUDED.account_type,
			keyword = EXCLUDED.keyword,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRowContext(ctx, query,
		account.ID,
		account.Username,
		account.Platform,
		account.AccountType,
		account.Keyword,
		account.IsActive,
		account.LastVideoID,
		account.LastChecked,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *PostgresTrackedAccountRepository) GetByID(ctx context.Context, id string) (*models.TrackedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM tracked_accounts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresTrackedAccountRepository) GetByPlatformAndUsername(ctx context.Context, platform models.Platform, username string) (*models.TrackedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM tracked_accounts WHERE platform = $1 AND username = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, platform, username))
}

func (r *PostgresTrackedAccountRepository) ListActive(ctx context.Context) ([]*models.TrackedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM tracked_accounts WHERE is_active ORDER BY created_at`
	return r.list(ctx, query)
}

func (r *PostgresTrackedAccountRepository) ListAll(ctx context.Context) ([]*models.TrackedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM tracked_accounts ORDER BY created_at`
	return r.list(ctx, query)
}

func (r *PostgresTrackedAccountRepository) UpdateWatermark(ctx context.Context, id, lastVideoID string, checkedAt time.Time) error {
	query := `
		UPDATE tracked_accounts SET
			last_video_id = $2, last_checked = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, lastVideoID, checkedAt)
	return err
}

func (r *PostgresTrackedAccountRepository) TouchLastChecked(ctx context.Context, id string, checkedAt time.Time) error {
	query := `UPDATE tracked_accounts SET last_checked = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, checkedAt)
	return err
}

func (r *PostgresTrackedAccountRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE tracked_accounts SET is_active = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, active)
	return err
}

func (r *PostgresTrackedAccountRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tracked_accounts WHERE id = $1`, id)
	return err
}

func (r *PostgresTrackedAccountRepository) list(ctx context.Context, query string, args ...any) ([]*models.TrackedAccount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.TrackedAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresTrackedAccountRepository) scanOne(row *sql.Row) (*models.TrackedAccount, error) {
	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func scanAccount(row rowScanner) (*models.TrackedAccount, error) {
	var account models.TrackedAccount
	var lastChecked sql.NullTime

	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Platform,
		&account.AccountType,
		&account.Keyword,
		&account.IsActive,
		&account.LastVideoID,
		&lastChecked,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastChecked.Valid {
		t := lastChecked.Time
		account.LastChecked = &t
	}

	return &account, nil
}

var _ models.TrackedAccountRepository = (*PostgresTrackedAccountRepository)(nil)
