package files

import (
	"context"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// Repository is the persistent file catalogue.
type Repository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id string) (*models.File, error)
	GetByShareToken(ctx context.Context, token string) (*models.File, error)
	ListByOwner(ctx context.Context, owner string) ([]*models.File, error)
	SumSizeByOwner(ctx context.Context, owner string) (int64, error)
	Delete(ctx context.Context, id string) error
	SetShare(ctx context.Context, id string, share *models.Share) error
	ClearShare(ctx context.Context, id string) error
	// LockOwner serializes quota-affecting writes of one owner until the
	// surrounding transaction ends.
	LockOwner(ctx context.Context, owner string) error
}
