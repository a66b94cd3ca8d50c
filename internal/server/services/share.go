package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/blobstore"
	"github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/scanner"
	"golang.org/x/crypto/bcrypt"
)

// ShareGate decides whether a public link may deliver its file. Checks run in
// order: existence, expiry, password, malware scan. A scanner failure denies
// access.
type ShareGate struct {
	files   *FileRegistry
	blobs   blobstore.Store
	scanner scanner.Scanner
	timeout time.Duration
	rate    int64
	logger  logging.Logger
	now     func() time.Time
}

func NewShareGate(files *FileRegistry, blobs blobstore.Store, sc scanner.Scanner, cfg *config.Config, logger logging.Logger) *ShareGate {
	return &ShareGate{
		files:   files,
		blobs:   blobs,
		scanner: sc,
		timeout: cfg.OpTimeout,
		rate:    cfg.MinTransferRate,
		logger:  logger.With("module", "share"),
		now:     time.Now,
	}
}

// Resolve applies the link checks and returns the file when access is granted.
func (g *ShareGate) Resolve(ctx context.Context, token, password string) (*models.File, error) {
	f, err := g.Inspect(ctx, token)
	if err != nil {
		return nil, err
	}

	if f.Share.Protected() {
		if password == "" {
			return nil, common.ErrPasswordRequired
		}
		if bcrypt.CompareHashAndPassword([]byte(f.Share.PasswordHash), []byte(password)) != nil {
			return nil, common.ErrPasswordIncorrect
		}
	}

	if err := g.scan(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Inspect runs the existence and expiry checks only. It lets the public page
// show a password prompt without scanning.
func (g *ShareGate) Inspect(ctx context.Context, token string) (*models.File, error) {
	f, err := g.files.FindByPublicToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if f.Share == nil {
		return nil, common.ErrLinkNotFound
	}
	if f.Share.Expired(g.now()) {
		return nil, common.ErrLinkExpired
	}
	return f, nil
}

// scan reads the whole file, so its deadline grows with the file size.
func (g *ShareGate) scan(ctx context.Context, f *models.File) error {
	ctx, cancel := withTimeout(ctx, transferBudget(g.timeout, g.rate, f.Size, 1))
	defer cancel()

	rc, err := g.blobs.Open(ctx, f.StoragePath)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrLinkNotFound
		}
		g.logger.Error(ctx, "scan source unavailable", "file", f.ID, "error", err)
		return common.ErrScanUnavailable
	}
	defer rc.Close()

	res, err := g.scanner.Scan(ctx, rc)
	if err != nil {
		g.logger.Error(ctx, "scan failed", "file", f.ID, "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return timeoutErr(errors.Join(common.ErrScanUnavailable, err))
		}
		return common.ErrScanUnavailable
	}
	if res.Infected {
		g.logger.Warn(ctx, "infected file blocked", "file", f.ID, "signatures", res.Signatures)
		return &common.ScanInfectedError{Signatures: res.Signatures}
	}
	return nil
}

// Open resolves the link and returns the file with a reader over its bytes.
// The reader holds a blob reference until closed.
func (g *ShareGate) Open(ctx context.Context, token, password string) (*models.File, io.ReadCloser, error) {
	f, err := g.Resolve(ctx, token, password)
	if err != nil {
		return nil, nil, err
	}
	rc, err := g.blobs.Open(ctx, f.StoragePath)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrLinkNotFound
		}
		return nil, nil, err
	}
	return f, rc, nil
}
