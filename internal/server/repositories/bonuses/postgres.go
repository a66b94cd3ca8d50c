package bonuses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, owner string) (float64, error) {
	query := `SELECT bonus_gb FROM bonus_grants WHERE owner = $1`

	var gb float64
	if err := r.db.QueryRowContext(ctx, query, owner).Scan(&gb); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return gb, nil
}

func (r *PostgresRepository) Add(ctx context.Context, owner string, gb float64) (float64, error) {
	query := `
		INSERT INTO bonus_grants (owner, bonus_gb) VALUES ($1, $2)
		ON CONFLICT (owner) DO UPDATE SET bonus_gb = bonus_grants.bonus_gb + EXCLUDED.bonus_gb
		RETURNING bonus_gb
	`

	var total float64
	if err := r.db.QueryRowContext(ctx, query, owner, gb).Scan(&total); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return total, nil
}
