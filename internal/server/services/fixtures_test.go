package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/blobstore"
	"github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophdrive/internal/server/scanner"
	"github.com/dmitrijs2005/gophdrive/internal/server/sessions"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.OpTimeout = 5 * time.Second
	cfg.SessionTTL = time.Hour
	cfg.MaxPartSize = 1 << 20
	return cfg
}

type fakeScanner struct {
	res   scanner.Result
	err   error
	calls int
	mu    sync.Mutex
}

func (f *fakeScanner) Scan(_ context.Context, r io.Reader) (scanner.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	_, _ = io.Copy(io.Discard, r)
	return f.res, f.err
}

type env struct {
	cfg      *config.Config
	rm       *repomanager.MemoryRepositoryManager
	blobs    *blobstore.Guard
	sessions *sessions.MemoryStore
	scanner  *fakeScanner
	quota    *QuotaLedger
	files    *FileRegistry
	uploads  *UploadManager
	redeem   *RedemptionEngine
	gate     *ShareGate
}

func newEnvWithStore(t *testing.T, store blobstore.Store) *env {
	t.Helper()
	cfg := testConfig()
	rm := repomanager.NewMemoryRepositoryManager()
	log := nopLogger{}
	blobs := blobstore.NewGuard(store, cfg.OpTimeout, log)
	sess := sessions.NewMemoryStore()
	sc := &fakeScanner{}

	quota := NewQuotaLedger(rm, cfg, log)
	files := NewFileRegistry(rm, blobs, cfg, log)
	return &env{
		cfg:      cfg,
		rm:       rm,
		blobs:    blobs,
		sessions: sess,
		scanner:  sc,
		quota:    quota,
		files:    files,
		uploads:  NewUploadManager(rm, sess, blobs, quota, files, cfg, log),
		redeem:   NewRedemptionEngine(rm, cfg, log),
		gate:     NewShareGate(files, blobs, sc, cfg, log),
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fs, err := blobstore.NewFSStore(t.TempDir())
	require.NoError(t, err)
	return newEnvWithStore(t, fs)
}

// zeroReader yields n zero bytes without allocating them.
type zeroReader struct{ n int64 }

func (z *zeroReader) Read(p []byte) (int, error) {
	if z.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > z.n {
		p = p[:z.n]
	}
	clear(p)
	z.n -= int64(len(p))
	return len(p), nil
}

// sparseStore remembers only object sizes, so multi-gigabyte uploads can be
// exercised without touching the disk.
type sparseStore struct {
	mu    sync.Mutex
	sizes map[string]int64
}

func newSparseStore() *sparseStore { return &sparseStore{sizes: map[string]int64{}} }

func (s *sparseStore) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.sizes[key] = n
	s.mu.Unlock()
	return n, nil
}

func (s *sparseStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	n, ok := s.sizes[key]
	s.mu.Unlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(&zeroReader{n: n}), nil
}

func (s *sparseStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.sizes, key)
	s.mu.Unlock()
	return nil
}

func (s *sparseStore) RemovePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.sizes {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(s.sizes, k)
		}
	}
	return nil
}

func (s *sparseStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sizes)
}
