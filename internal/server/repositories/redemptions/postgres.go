package redemptions

import (
	"context"
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

func (r *PostgresRepository) Exists(ctx context.Context, code, owner string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM redemptions WHERE code = $1 AND owner = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, code, owner).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Create(ctx context.Context, red *models.Redemption) error {
	query := `
		INSERT INTO redemptions (code, owner, family, gb_amount, redeemed_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, red.Code, red.Owner, string(red.Family), red.GBAmount, red.RedeemedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, owner string) ([]*models.Redemption, error) {
	query := `
		SELECT code, owner, family, gb_amount, redeemed_at FROM redemptions
		WHERE owner = $1 ORDER BY redeemed_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to select redemptions: %w", err)
	}
	defer rows.Close()

	var result []*models.Redemption
	for rows.Next() {
		var (
			item   models.Redemption
			family string
		)
		if err := rows.Scan(&item.Code, &item.Owner, &family, &item.GBAmount, &item.RedeemedAt); err != nil {
			return nil, err
		}
		item.Family = models.CodeFamily(family)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
