package foundcodes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// Repository stores single-use codes handed out by the mini-game.
type Repository interface {
	Create(ctx context.Context, c *models.FoundCode) error
	GetForUpdate(ctx context.Context, code string) (*models.FoundCode, error)
	// MarkUsed flips the code to used; common.ErrCodeExhausted when it already was.
	MarkUsed(ctx context.Context, code, owner string, at time.Time) error
}
