package specialcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Create(ctx context.Context, c *models.SpecialCode) error {
	query := `
		INSERT INTO special_codes (code, gb_amount, max_uses, use_count, created_by, created_at)
		VALUES ($1, $2, $3, 0, $4, $5)
	`

	if _, err := r.db.ExecContext(ctx, query, c.Code, c.GBAmount, c.MaxUses, c.CreatedBy, c.CreatedAt); err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, code string) (*models.SpecialCode, error) {
	query := `
		SELECT code, gb_amount, max_uses, use_count, created_by, created_at
		FROM special_codes WHERE code = $1
		FOR UPDATE
	`

	c := &models.SpecialCode{}
	err := r.db.QueryRowContext(ctx, query, code).
		Scan(&c.Code, &c.GBAmount, &c.MaxUses, &c.UseCount, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) IncrementUse(ctx context.Context, code string) error {
	query := `
		UPDATE special_codes SET use_count = use_count + 1
		WHERE code = $1 AND (max_uses = 0 OR use_count < max_uses)
	`

	result, err := r.db.ExecContext(ctx, query, code)
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
