package specialcodes

import (
	"context"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// Repository stores administrator-issued codes.
type Repository interface {
	// Create returns common.ErrorAlreadyExists for a duplicate code.
	Create(ctx context.Context, c *models.SpecialCode) error
	// GetForUpdate loads the code and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, code string) (*models.SpecialCode, error)
	// IncrementUse consumes one use; common.ErrCodeExhausted when none is left.
	IncrementUse(ctx context.Context, code string) error
}
