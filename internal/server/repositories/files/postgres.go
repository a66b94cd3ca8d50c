package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

const fileColumns = `id, owner, original_name, storage_path, size, uploaded_at, share_token, share_expires_at, share_password_hash`

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new file row.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, owner, original_name, storage_path, size, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		file.ID, file.Owner, file.OriginalName, file.StoragePath, file.Size, file.UploadedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the file or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id=$1`
	return r.getOne(ctx, query, id)
}

// GetByShareToken returns the file published under token or common.ErrorNotFound.
func (r *PostgresRepository) GetByShareToken(ctx context.Context, token string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE share_token=$1`
	return r.getOne(ctx, query, token)
}

// ListByOwner returns the owner's files, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, owner string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE owner=$1 ORDER BY uploaded_at DESC`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		item, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SumSizeByOwner returns the bytes currently held by owner.
func (r *PostgresRepository) SumSizeByOwner(ctx context.Context, owner string) (int64, error) {
	query := `SELECT COALESCE(SUM(size), 0) FROM files WHERE owner=$1`
	var total int64
	if err := r.db.QueryRowContext(ctx, query, owner).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum sizes: %w", err)
	}
	return total, nil
}

// Delete removes the file row. Exactly one row must be affected.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id=$1`
	return r.execOne(ctx, "failed to delete file", query, id)
}

// SetShare stores public-link metadata for the file.
func (r *PostgresRepository) SetShare(ctx context.Context, id string, share *models.Share) error {
	query := `UPDATE files SET share_token=$2, share_expires_at=$3, share_password_hash=$4 WHERE id=$1`

	var expires sql.NullTime
	if share.ExpiresAt != nil {
		expires = sql.NullTime{Time: *share.ExpiresAt, Valid: true}
	}
	var hash sql.NullString
	if share.PasswordHash != "" {
		hash = sql.NullString{String: share.PasswordHash, Valid: true}
	}

	return r.execOne(ctx, "failed to set share", query, id, share.Token, expires, hash)
}

// ClearShare removes public-link metadata from the file.
func (r *PostgresRepository) ClearShare(ctx context.Context, id string) error {
	query := `UPDATE files SET share_token=NULL, share_expires_at=NULL, share_password_hash=NULL WHERE id=$1`
	return r.execOne(ctx, "failed to clear share", query, id)
}

// LockOwner takes a transaction-scoped advisory lock keyed by owner.
// Outside a transaction the lock is released immediately, so callers must
// pass a *sql.Tx-bound repository.
func (r *PostgresRepository) LockOwner(ctx context.Context, owner string) error {
	query := `SELECT pg_advisory_xact_lock(hashtext($1))`
	if _, err := r.db.ExecContext(ctx, query, owner); err != nil {
		return fmt.Errorf("failed to lock owner: %w", err)
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.File, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, msg string, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*models.File, error) {
	var (
		f       models.File
		token   sql.NullString
		expires sql.NullTime
		hash    sql.NullString
	)
	if err := s.Scan(&f.ID, &f.Owner, &f.OriginalName, &f.StoragePath, &f.Size, &f.UploadedAt,
		&token, &expires, &hash); err != nil {
		return nil, err
	}
	if token.Valid {
		f.Share = &models.Share{Token: token.String, PasswordHash: hash.String}
		if expires.Valid {
			t := expires.Time.In(time.UTC)
			f.Share.ExpiresAt = &t
		}
	}
	return &f, nil
}
