package foundcodes

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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.FoundCode) error {
	query := `
		INSERT INTO found_codes (code, gb, class, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.db.ExecContext(ctx, query, c.Code, c.GB, c.Class, c.CreatedBy, c.CreatedAt); err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, code string) (*models.FoundCode, error) {
	query := `
		SELECT code, gb, class, used, used_by, used_at, created_by, created_at
		FROM found_codes WHERE code = $1
		FOR UPDATE
	`

	var (
		c      models.FoundCode
		usedBy sql.NullString
		usedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, code).
		Scan(&c.Code, &c.GB, &c.Class, &c.Used, &usedBy, &usedAt, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.UsedBy = usedBy.String
	if usedAt.Valid {
		c.UsedAt = &usedAt.Time
	}
	return &c, nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, code, owner string, at time.Time) error {
	query := `
		UPDATE found_codes SET used = TRUE, used_by = $2, used_at = $3
		WHERE code = $1 AND used = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, code, owner, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrCodeExhausted
	}
	return nil
}
