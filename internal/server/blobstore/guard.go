package blobstore

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
)

// Guard wraps a Store and counts open readers per key. Remove on a key that
// is being read is deferred until the last reader closes, so a download that
// already started is never cut short by a concurrent delete.
type Guard struct {
	Store

	// timeout bounds a deferred removal, which runs after the request that
	// asked for it has returned.
	timeout time.Duration
	logger  logging.Logger

	mu      sync.Mutex
	refs    map[string]int
	pending map[string]struct{}
}

// NewGuard wraps s.
func NewGuard(s Store, timeout time.Duration, logger logging.Logger) *Guard {
	return &Guard{
		Store:   s,
		timeout: timeout,
		logger:  logger.With("module", "blob_guard"),
		refs:    map[string]int{},
		pending: map[string]struct{}{},
	}
}

// Open returns a reader that holds a reference on key until Close.
func (g *Guard) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	g.mu.Lock()
	if _, gone := g.pending[key]; gone {
		g.mu.Unlock()
		return nil, common.ErrorNotFound
	}
	g.refs[key]++
	g.mu.Unlock()

	rc, err := g.Store.Open(ctx, key)
	if err != nil {
		_ = g.release(key)
		return nil, err
	}
	return &guardedReader{ReadCloser: rc, release: func() error { return g.release(key) }}, nil
}

// Remove deletes key now, or marks it for deletion when readers are open.
func (g *Guard) Remove(ctx context.Context, key string) error {
	if n := g.readers(key, true); n > 0 {
		g.logger.Debug(ctx, "blob removal deferred", "key", key, "readers", n)
		return nil
	}
	return g.Store.Remove(ctx, key)
}

// readers returns the open reader count of key. With markPending a key that
// has readers is flagged for removal on the last Close.
func (g *Guard) readers(key string, markPending bool) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.refs[key]
	if n > 0 && markPending {
		g.pending[key] = struct{}{}
	}
	return n
}

func (g *Guard) release(key string) error {
	g.mu.Lock()
	g.refs[key]--
	if g.refs[key] > 0 {
		g.mu.Unlock()
		return nil
	}
	delete(g.refs, key)
	_, remove := g.pending[key]
	delete(g.pending, key)
	g.mu.Unlock()

	if !remove {
		return nil
	}

	ctx := context.Background()
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := g.Store.Remove(ctx, key); err != nil {
		g.logger.Error(ctx, "orphaned blob", "key", key, "error", err)
		return err
	}
	return nil
}

type guardedReader struct {
	io.ReadCloser
	once    sync.Once
	release func() error
}

func (r *guardedReader) Close() error {
	err := r.ReadCloser.Close()
	r.once.Do(func() {
		err = errors.Join(err, r.release())
	})
	return err
}
