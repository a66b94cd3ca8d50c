package subscriptions

import (
	"context"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// Repository resolves the subscription tier of an owner.
type Repository interface {
	// GetByOwner returns common.ErrorNotFound when the owner has no
	// subscription or the referenced tier is gone.
	GetByOwner(ctx context.Context, owner string) (*models.Tier, error)
	// Assign sets the owner's tier; common.ErrorNotFound when the tier does not exist.
	Assign(ctx context.Context, owner string, tierID int64) error
}
