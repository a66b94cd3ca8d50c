package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/blobstore"
	"github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// FileRegistry is the catalogue of completed files. Every owner-scoped
// operation reports a foreign file as not found.
type FileRegistry struct {
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	timeout     time.Duration
	logger      logging.Logger
	now         func() time.Time
}

func NewFileRegistry(m repomanager.RepositoryManager, blobs blobstore.Store, cfg *config.Config, logger logging.Logger) *FileRegistry {
	return &FileRegistry{
		repomanager: m,
		blobs:       blobs,
		timeout:     cfg.OpTimeout,
		logger:      logger.With("module", "files"),
		now:         time.Now,
	}
}

// NewStoragePath returns a fresh blob key of the form files/YYYY/MM/DD/<uuid>.
func (r *FileRegistry) NewStoragePath() string {
	t := r.now().UTC()
	return fmt.Sprintf("files/%04d/%02d/%02d/%s", t.Year(), t.Month(), t.Day(), uuid.NewString())
}

// Register records a finished file.
func (r *FileRegistry) Register(ctx context.Context, owner, name, storagePath string, size int64) (*models.File, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	f, err := r.register(ctx, r.repomanager.Conn(), owner, name, storagePath, size)
	return f, timeoutErr(err)
}

func (r *FileRegistry) register(ctx context.Context, db dbx.DBTX, owner, name, storagePath string, size int64) (*models.File, error) {
	if owner == "" || name == "" || storagePath == "" || size < 0 {
		return nil, common.ErrorInvalidArgument
	}
	f := &models.File{
		ID:           uuid.NewString(),
		Owner:        owner,
		OriginalName: name,
		StoragePath:  storagePath,
		Size:         size,
		UploadedAt:   r.now().UTC(),
	}
	if err := r.repomanager.Files(db).Create(ctx, f); err != nil {
		return nil, fmt.Errorf("error creating file: %w", err)
	}
	return f, nil
}

// Get returns an owned file.
func (r *FileRegistry) Get(ctx context.Context, owner, id string) (*models.File, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	f, err := r.owned(ctx, owner, id)
	return f, timeoutErr(err)
}

func (r *FileRegistry) owned(ctx context.Context, owner, id string) (*models.File, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}
	f, err := r.repomanager.Files(r.repomanager.Conn()).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Owner != owner {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

// ListByOwner returns the owner's files, newest first.
func (r *FileRegistry) ListByOwner(ctx context.Context, owner string) ([]*models.File, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	files, err := r.repomanager.Files(r.repomanager.Conn()).ListByOwner(ctx, owner)
	return files, timeoutErr(err)
}

// Delete removes the metadata and then the bytes. A failed byte removal is
// logged and does not undo the metadata delete.
func (r *FileRegistry) Delete(ctx context.Context, owner, id string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	f, err := r.owned(ctx, owner, id)
	if err != nil {
		return timeoutErr(err)
	}
	if err := r.repomanager.Files(r.repomanager.Conn()).Delete(ctx, f.ID); err != nil {
		return timeoutErr(err)
	}

	if err := r.blobs.Remove(ctx, f.StoragePath); err != nil {
		r.logger.Error(ctx, "orphaned blob", "key", f.StoragePath, "file", f.ID, "error", err)
	}
	r.logger.Info(ctx, "file deleted", "owner", owner, "file", f.ID)
	return nil
}

// DeleteBatch deletes every owned id and skips foreign or missing ones. It
// returns the number of deleted files.
func (r *FileRegistry) DeleteBatch(ctx context.Context, owner string, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		err := r.Delete(ctx, owner, id)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// SetSharing publishes the file under a fresh random token. A zero expiresIn
// never expires; an empty password leaves the link open.
func (r *FileRegistry) SetSharing(ctx context.Context, owner, id string, expiresIn time.Duration, password string) (*models.Share, error) {
	if expiresIn < 0 {
		return nil, common.ErrorInvalidArgument
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	f, err := r.owned(ctx, owner, id)
	if err != nil {
		return nil, timeoutErr(err)
	}

	token, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, common.ErrorInternal
	}
	share := &models.Share{Token: token}
	if expiresIn > 0 {
		at := r.now().UTC().Add(expiresIn)
		share.ExpiresAt = &at
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		share.PasswordHash = string(hash)
	}

	if err := r.repomanager.Files(r.repomanager.Conn()).SetShare(ctx, f.ID, share); err != nil {
		return nil, timeoutErr(err)
	}
	r.logger.Info(ctx, "file shared", "owner", owner, "file", f.ID, "expires_at", share.ExpiresAt, "protected", share.Protected())
	return share, nil
}

// ClearSharing revokes the public link.
func (r *FileRegistry) ClearSharing(ctx context.Context, owner, id string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	f, err := r.owned(ctx, owner, id)
	if err != nil {
		return timeoutErr(err)
	}
	return timeoutErr(r.repomanager.Files(r.repomanager.Conn()).ClearShare(ctx, f.ID))
}

// FindByPublicToken resolves a share token; common.ErrLinkNotFound when unknown.
func (r *FileRegistry) FindByPublicToken(ctx context.Context, token string) (*models.File, error) {
	if token == "" {
		return nil, common.ErrLinkNotFound
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	f, err := r.repomanager.Files(r.repomanager.Conn()).GetByShareToken(ctx, token)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrLinkNotFound
	}
	return f, timeoutErr(err)
}

// Download opens an owned file for reading. The caller must close the reader.
func (r *FileRegistry) Download(ctx context.Context, owner, id string) (*models.File, io.ReadCloser, error) {
	f, err := r.Get(ctx, owner, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := r.blobs.Open(ctx, f.StoragePath)
	if err != nil {
		return nil, nil, timeoutErr(err)
	}
	return f, rc, nil
}
