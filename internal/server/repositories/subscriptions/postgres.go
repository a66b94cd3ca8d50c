package subscriptions

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

func (r *PostgresRepository) GetByOwner(ctx context.Context, owner string) (*models.Tier, error) {
	query := `
		SELECT s.id, s.name, s.storage_limit_gb
		FROM accounts a JOIN subscriptions s ON s.id = a.subscription_id
		WHERE a.owner = $1
	`

	tier := &models.Tier{}
	err := r.db.QueryRowContext(ctx, query, owner).Scan(&tier.ID, &tier.Name, &tier.StorageLimitGB)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tier, nil
}

func (r *PostgresRepository) Assign(ctx context.Context, owner string, tierID int64) error {
	query := `
		INSERT INTO accounts (owner, subscription_id) VALUES ($1, $2)
		ON CONFLICT (owner) DO UPDATE SET subscription_id = EXCLUDED.subscription_id
	`

	if _, err := r.db.ExecContext(ctx, query, owner, tierID); err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
