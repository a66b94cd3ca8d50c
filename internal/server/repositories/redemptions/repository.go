package redemptions

import (
	"context"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// Repository is the insert-only redemption log. The (code, owner) pair is unique.
type Repository interface {
	Exists(ctx context.Context, code, owner string) (bool, error)
	// Create returns common.ErrorAlreadyExists when the pair was already recorded.
	Create(ctx context.Context, r *models.Redemption) error
	ListByOwner(ctx context.Context, owner string) ([]*models.Redemption, error)
}
