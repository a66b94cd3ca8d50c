// Package sessions keeps in-flight chunked upload sessions. Sessions are
// ephemeral and never touch the file catalog.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// Store persists upload sessions and their received part indices.
type Store interface {
	// Create stores a new session. The session ID must be unique.
	Create(ctx context.Context, s *models.UploadSession) error
	// Get returns the session or common.ErrSessionNotFound.
	Get(ctx context.Context, id string) (*models.UploadSession, error)
	// PutPart records a staged part and refreshes the session's activity time.
	// It fails with common.ErrSessionBusy unless the session is receiving.
	PutPart(ctx context.Context, id string, index int, size int64, at time.Time) error
	// CompareAndSwapState moves the session from one state to another and
	// reports whether the swap happened.
	CompareAndSwapState(ctx context.Context, id string, from, to models.SessionState) (bool, error)
	// Delete forgets the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	// ListByOwner returns every session the owner still has.
	ListByOwner(ctx context.Context, owner string) ([]*models.UploadSession, error)
	// ListIdle returns ids of sessions with no activity since before.
	ListIdle(ctx context.Context, before time.Time) ([]string, error)
}
