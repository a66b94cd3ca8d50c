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
	"github.com/dmitrijs2005/gophdrive/internal/server/sessions"
)

// UploadManager runs chunked and single-request uploads. Admission checks
// the owner's remaining capacity minus what open sessions already reserved;
// registration of the finished file happens under a per-owner lock with a
// second check against the bytes actually written.
type UploadManager struct {
	repomanager repomanager.RepositoryManager
	sessions    sessions.Store
	blobs       blobstore.Store
	quota       *QuotaLedger
	files       *FileRegistry
	timeout     time.Duration
	rate        int64
	ttl         time.Duration
	maxPartSize int64
	logger      logging.Logger
	now         func() time.Time
}

func NewUploadManager(
	m repomanager.RepositoryManager,
	store sessions.Store,
	blobs blobstore.Store,
	quota *QuotaLedger,
	files *FileRegistry,
	cfg *config.Config,
	logger logging.Logger,
) *UploadManager {
	return &UploadManager{
		repomanager: m,
		sessions:    store,
		blobs:       blobs,
		quota:       quota,
		files:       files,
		timeout:     cfg.OpTimeout,
		rate:        cfg.MinTransferRate,
		ttl:         cfg.SessionTTL,
		maxPartSize: cfg.MaxPartSize,
		logger:      logger.With("module", "uploads"),
		now:         time.Now,
	}
}

// available is the capacity left for a new upload: remaining bytes minus the
// declared size of every open session of the owner.
func (u *UploadManager) available(ctx context.Context, owner string) (int64, error) {
	remaining, err := u.quota.RemainingBytes(ctx, owner)
	if err != nil {
		return 0, err
	}

	sctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()
	open, err := u.sessions.ListByOwner(sctx, owner)
	if err != nil {
		return 0, timeoutErr(fmt.Errorf("error listing sessions: %w", err))
	}

	var reserved int64
	for _, s := range open {
		if s.Open() {
			reserved += s.DeclaredSize
		}
	}
	return max(0, remaining-reserved), nil
}

// Initiate admits a chunked upload of declaredSize bytes and opens a session
// ready to receive parts. The session is recorded as initiated and then moved
// to receiving; the sweeper reclaims one left behind in between.
func (u *UploadManager) Initiate(ctx context.Context, owner, name string, declaredSize int64) (*models.UploadSession, error) {
	if owner == "" || name == "" || declaredSize < 0 {
		return nil, common.ErrorInvalidArgument
	}

	avail, err := u.available(ctx, owner)
	if err != nil {
		return nil, err
	}
	if declaredSize > avail {
		return nil, &common.QuotaExceededError{Remaining: avail}
	}

	id, err := common.MakeRandHexString(12)
	if err != nil {
		return nil, common.ErrorInternal
	}
	now := u.now().UTC()
	s := &models.UploadSession{
		ID:           id,
		Owner:        owner,
		Name:         name,
		DeclaredSize: declaredSize,
		State:        models.SessionInitiated,
		Parts:        map[int]int64{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	sctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()
	if err := u.sessions.Create(sctx, s); err != nil {
		return nil, timeoutErr(fmt.Errorf("error creating session: %w", err))
	}
	if err := u.swap(ctx, id, models.SessionInitiated, models.SessionReceiving); err != nil {
		u.forget(ctx, id)
		return nil, err
	}
	s.State = models.SessionReceiving

	u.logger.Info(ctx, "upload initiated", "owner", owner, "session", id, "declared_size", declaredSize)
	return s, nil
}

// session loads an owned session. Foreign sessions are reported as missing.
func (u *UploadManager) session(ctx context.Context, owner, id string) (*models.UploadSession, error) {
	sctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	s, err := u.sessions.Get(sctx, id)
	if err != nil {
		return nil, timeoutErr(err)
	}
	if s.Owner != owner {
		return nil, common.ErrSessionNotFound
	}
	return s, nil
}

// ReceivePart stages one part. Parts may arrive concurrently and in any
// order; re-sending an index replaces the earlier bytes.
func (u *UploadManager) ReceivePart(ctx context.Context, owner, id string, index int, r io.Reader) (int64, error) {
	if index < 0 {
		return 0, common.ErrorInvalidArgument
	}

	s, err := u.session(ctx, owner, id)
	if err != nil {
		return 0, err
	}
	if s.State != models.SessionReceiving {
		return 0, common.ErrSessionBusy
	}
	if u.ttl > 0 && u.now().Sub(s.UpdatedAt) > u.ttl {
		return 0, common.ErrSessionExpired
	}

	key := blobstore.PartKey(id, index)
	bctx, cancel := withTimeout(ctx, u.budget(u.maxPartSize, 1))
	n, err := u.blobs.Put(bctx, key, &limitedReader{r: r, limit: u.maxPartSize, err: common.ErrPartTooLarge})
	cancel()
	if err != nil {
		if errors.Is(err, common.ErrPartTooLarge) {
			return 0, common.ErrPartTooLarge
		}
		return 0, timeoutErr(err)
	}

	sctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()
	if err := u.sessions.PutPart(sctx, id, index, n, u.now().UTC()); err != nil {
		if u.closed(sctx, id) {
			u.discard(ctx, key)
		}
		return 0, timeoutErr(err)
	}
	return n, nil
}

// Finalize assembles parts 0..totalParts-1 into one file. A missing part
// returns the session to receiving with its parts intact.
func (u *UploadManager) Finalize(ctx context.Context, owner, id string, totalParts int) (*models.File, error) {
	if totalParts < 1 {
		return nil, common.ErrorInvalidArgument
	}
	if _, err := u.session(ctx, owner, id); err != nil {
		return nil, err
	}

	if err := u.swap(ctx, id, models.SessionReceiving, models.SessionFinalizing); err != nil {
		return nil, err
	}

	// reload: parts may have landed between the first read and the swap
	s, err := u.session(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if missing := s.FirstMissing(totalParts); missing >= 0 {
		u.release(ctx, id)
		return nil, &common.UploadIncompleteError{MissingIndex: missing}
	}

	var staged int64
	for i := 0; i < totalParts; i++ {
		staged += s.Parts[i]
	}

	// one round trip per part open plus the final write, and the bytes on top
	storagePath := u.files.NewStoragePath()
	bctx, cancel := withTimeout(ctx, u.budget(staged, totalParts+1))
	parts := &partsReader{ctx: bctx, blobs: u.blobs, id: id, total: totalParts, sizes: s.Parts, budget: u.budget}
	size, err := u.blobs.Put(bctx, storagePath, parts)
	parts.closeCurrent()
	cancel()
	if err != nil {
		u.discard(ctx, storagePath)
		u.release(ctx, id)
		return nil, timeoutErr(fmt.Errorf("error assembling parts: %w", err))
	}
	if size != s.DeclaredSize {
		u.logger.Warn(ctx, "size differs from declaration", "session", id, "declared", s.DeclaredSize, "actual", size)
	}

	f, err := u.commit(ctx, owner, s.Name, storagePath, size)
	if err != nil {
		u.discard(ctx, storagePath)
		u.release(ctx, id)
		return nil, err
	}

	if err := u.swap(ctx, id, models.SessionFinalizing, models.SessionCompleted); err != nil {
		u.logger.Warn(ctx, "session not marked completed", "session", id, "error", err)
	}
	u.forget(ctx, id)
	u.logger.Info(ctx, "upload finalized", "owner", owner, "session", id, "file", f.ID, "size", size)
	return f, nil
}

// commit registers the file under the owner lock after re-checking capacity
// against the actual size.
func (u *UploadManager) commit(ctx context.Context, owner, name, storagePath string, size int64) (*models.File, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	var f *models.File
	err := u.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := u.repomanager.Files(tx).LockOwner(ctx, owner); err != nil {
			return fmt.Errorf("error locking owner: %w", err)
		}
		usage, err := u.quota.usage(ctx, tx, owner)
		if err != nil {
			return err
		}
		if size > usage.Remaining {
			return &common.QuotaExceededError{Remaining: usage.Remaining}
		}
		f, err = u.files.register(ctx, tx, owner, name, storagePath, size)
		return err
	})
	if err != nil {
		return nil, timeoutErr(err)
	}
	return f, nil
}

// Cancel abandons a receiving session and purges its parts.
func (u *UploadManager) Cancel(ctx context.Context, owner, id string) error {
	if _, err := u.session(ctx, owner, id); err != nil {
		return err
	}
	if err := u.swap(ctx, id, models.SessionReceiving, models.SessionAbandoned); err != nil {
		return err
	}
	u.forget(ctx, id)
	u.logger.Info(ctx, "upload cancelled", "owner", owner, "session", id)
	return nil
}

// UploadSingle stores a whole file from one request. Admission is decided
// before any byte is written and at most the admitted capacity is read.
func (u *UploadManager) UploadSingle(ctx context.Context, owner, name string, size int64, r io.Reader) (*models.File, error) {
	if owner == "" || name == "" || size < 0 {
		return nil, common.ErrorInvalidArgument
	}

	avail, err := u.available(ctx, owner)
	if err != nil {
		return nil, err
	}
	if size > avail {
		return nil, &common.QuotaExceededError{Remaining: avail}
	}

	storagePath := u.files.NewStoragePath()
	bctx, cancel := withTimeout(ctx, u.budget(size, 1))
	n, err := u.blobs.Put(bctx, storagePath, &limitedReader{r: r, limit: avail, err: &common.QuotaExceededError{Remaining: avail}})
	cancel()
	if err != nil {
		u.discard(ctx, storagePath)
		var qe *common.QuotaExceededError
		if errors.As(err, &qe) {
			return nil, qe
		}
		return nil, timeoutErr(fmt.Errorf("error storing file: %w", err))
	}

	f, err := u.commit(ctx, owner, name, storagePath, n)
	if err != nil {
		u.discard(ctx, storagePath)
		return nil, err
	}
	u.logger.Info(ctx, "file uploaded", "owner", owner, "file", f.ID, "size", n)
	return f, nil
}

// Sweep abandons sessions idle for longer than the session TTL and returns
// how many were reclaimed. Sessions being finalized are left alone.
// Initiated sessions only linger when Initiate failed halfway.
func (u *UploadManager) Sweep(ctx context.Context) (int, error) {
	cutoff := u.now().UTC().Add(-u.ttl)

	sctx, cancel := withTimeout(ctx, u.timeout)
	ids, err := u.sessions.ListIdle(sctx, cutoff)
	cancel()
	if err != nil {
		return 0, timeoutErr(fmt.Errorf("error listing idle sessions: %w", err))
	}

	swept := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		err := u.swap(ctx, id, models.SessionReceiving, models.SessionAbandoned)
		if errors.Is(err, common.ErrSessionBusy) {
			err = u.swap(ctx, id, models.SessionInitiated, models.SessionAbandoned)
		}
		switch {
		case errors.Is(err, common.ErrSessionBusy):
			continue
		case err != nil && !errors.Is(err, common.ErrSessionNotFound):
			u.logger.Warn(ctx, "sweep skipped session", "session", id, "error", err)
			continue
		}
		u.forget(ctx, id)
		swept++
	}
	return swept, nil
}

// closed reports whether the session is gone or finished. Its staging prefix
// is then purged already or about to be, so a part written late is an orphan.
func (u *UploadManager) closed(ctx context.Context, id string) bool {
	s, err := u.sessions.Get(ctx, id)
	if errors.Is(err, common.ErrSessionNotFound) {
		return true
	}
	return err == nil && (s.State == models.SessionAbandoned || s.State == models.SessionCompleted)
}

// budget bounds a call that moves size bytes in the given number of round trips.
func (u *UploadManager) budget(size int64, calls int) time.Duration {
	return transferBudget(u.timeout, u.rate, size, calls)
}

func (u *UploadManager) swap(ctx context.Context, id string, from, to models.SessionState) error {
	sctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	ok, err := u.sessions.CompareAndSwapState(sctx, id, from, to)
	if err != nil {
		return timeoutErr(err)
	}
	if !ok {
		return common.ErrSessionBusy
	}
	return nil
}

// release hands a finalizing session back to receiving.
func (u *UploadManager) release(ctx context.Context, id string) {
	if err := u.swap(context.WithoutCancel(ctx), id, models.SessionFinalizing, models.SessionReceiving); err != nil {
		u.logger.Error(ctx, "session stuck in finalizing", "session", id, "error", err)
	}
}

// forget purges staged parts and the session record.
func (u *UploadManager) forget(ctx context.Context, id string) {
	ctx, cancel := withTimeout(context.WithoutCancel(ctx), u.timeout)
	defer cancel()

	if err := u.blobs.RemovePrefix(ctx, blobstore.StagingPrefix(id)); err != nil {
		u.logger.Error(ctx, "staged parts not removed", "session", id, "error", err)
	}
	if err := u.sessions.Delete(ctx, id); err != nil {
		u.logger.Error(ctx, "session not removed", "session", id, "error", err)
	}
}

func (u *UploadManager) discard(ctx context.Context, key string) {
	ctx, cancel := withTimeout(context.WithoutCancel(ctx), u.timeout)
	defer cancel()

	if err := u.blobs.Remove(ctx, key); err != nil {
		u.logger.Error(ctx, "orphaned blob", "key", key, "error", err)
	}
}

// limitedReader fails with err once more than limit bytes were read.
type limitedReader struct {
	r     io.Reader
	limit int64
	read  int64
	err   error
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.limit {
		return n, l.err
	}
	return n, err
}

// partsReader streams staged parts 0..total-1 back to back. Each part is
// read under its own deadline sized by budget.
type partsReader struct {
	ctx    context.Context
	blobs  blobstore.Store
	id     string
	total  int
	sizes  map[int]int64
	budget func(size int64, calls int) time.Duration
	next   int
	cur    io.ReadCloser
	cancel context.CancelFunc
}

func (p *partsReader) Read(b []byte) (int, error) {
	for {
		if p.cur == nil {
			if p.next >= p.total {
				return 0, io.EOF
			}
			ctx, cancel := withTimeout(p.ctx, p.budget(p.sizes[p.next], 1))
			rc, err := p.blobs.Open(ctx, blobstore.PartKey(p.id, p.next))
			if err != nil {
				cancel()
				return 0, fmt.Errorf("part %d: %w", p.next, err)
			}
			p.cur, p.cancel = rc, cancel
			p.next++
		}

		n, err := p.cur.Read(b)
		if errors.Is(err, io.EOF) {
			p.closeCurrent()
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (p *partsReader) closeCurrent() {
	if p.cur != nil {
		_ = p.cur.Close()
		p.cancel()
		p.cur, p.cancel = nil, nil
	}
}
