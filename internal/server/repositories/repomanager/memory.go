package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/bonuses"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/files"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/foundcodes"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/redemptions"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/specialcodes"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/subscriptions"
)

var errNoSQL = errors.New("in-memory handle does not execute SQL")

// memHandle is the dbx.DBTX handed to in-memory repositories. It only marks
// whether the caller runs inside WithTx.
type memHandle struct {
	tx bool
}

func (memHandle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (memHandle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (memHandle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

type memState struct {
	files       map[string]*models.File
	tiers       map[int64]models.Tier
	accounts    map[string]int64
	bonuses     map[string]float64
	redemptions map[redemptionKey]*models.Redemption
	special     map[string]*models.SpecialCode
	found       map[string]*models.FoundCode
}

type redemptionKey struct {
	code  string
	owner string
}

func newMemState() *memState {
	return &memState{
		files: map[string]*models.File{},
		tiers: map[int64]models.Tier{
			1: models.DefaultTier,
			2: {ID: 2, Name: "Plus", StorageLimitGB: 50},
			3: {ID: 3, Name: "Pro", StorageLimitGB: 200},
		},
		accounts:    map[string]int64{},
		bonuses:     map[string]float64{},
		redemptions: map[redemptionKey]*models.Redemption{},
		special:     map[string]*models.SpecialCode{},
		found:       map[string]*models.FoundCode{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		files:       make(map[string]*models.File, len(s.files)),
		tiers:       make(map[int64]models.Tier, len(s.tiers)),
		accounts:    make(map[string]int64, len(s.accounts)),
		bonuses:     make(map[string]float64, len(s.bonuses)),
		redemptions: make(map[redemptionKey]*models.Redemption, len(s.redemptions)),
		special:     make(map[string]*models.SpecialCode, len(s.special)),
		found:       make(map[string]*models.FoundCode, len(s.found)),
	}
	for k, v := range s.files {
		c.files[k] = copyFile(v)
	}
	for k, v := range s.tiers {
		c.tiers[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.bonuses {
		c.bonuses[k] = v
	}
	for k, v := range s.redemptions {
		r := *v
		c.redemptions[k] = &r
	}
	for k, v := range s.special {
		sc := *v
		c.special[k] = &sc
	}
	for k, v := range s.found {
		c.found[k] = copyFound(v)
	}
	return c
}

// MemoryRepositoryManager keeps all state in process memory. Transactions are
// serialized and rolled back by restoring a snapshot, which gives the same
// isolation the PostgreSQL row and advisory locks provide.
type MemoryRepositoryManager struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *memState
}

// NewMemoryRepositoryManager returns an empty manager seeded with the default tiers.
func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{state: newMemState()}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Conn() dbx.DBTX { return memHandle{} }

// WithTx runs fn while holding the transaction lock. On error or panic the
// state seen before fn is restored.
func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn dbx.TxFunc) (err error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snapshot := m.state.clone()
	m.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			m.restore(snapshot)
			panic(p)
		}
		if err != nil {
			m.restore(snapshot)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(ctx, memHandle{tx: true})
}

func (m *MemoryRepositoryManager) restore(s *memState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *MemoryRepositoryManager) read(fn func(s *memState) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.state)
}

// write applies fn atomically. Writes outside WithTx also take the
// transaction lock so a concurrent rollback cannot discard them.
func (m *MemoryRepositoryManager) write(db dbx.DBTX, fn func(s *memState) error) error {
	if !inTx(db) {
		m.txMu.Lock()
		defer m.txMu.Unlock()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

func inTx(db dbx.DBTX) bool {
	h, ok := db.(memHandle)
	return ok && h.tx
}

func (m *MemoryRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return &memFiles{m: m, db: db}
}

func (m *MemoryRepositoryManager) Subscriptions(db dbx.DBTX) subscriptions.Repository {
	return &memSubscriptions{m: m, db: db}
}

func (m *MemoryRepositoryManager) Bonuses(db dbx.DBTX) bonuses.Repository {
	return &memBonuses{m: m, db: db}
}

func (m *MemoryRepositoryManager) Redemptions(db dbx.DBTX) redemptions.Repository {
	return &memRedemptions{m: m, db: db}
}

func (m *MemoryRepositoryManager) SpecialCodes(db dbx.DBTX) specialcodes.Repository {
	return &memSpecialCodes{m: m, db: db}
}

func (m *MemoryRepositoryManager) FoundCodes(db dbx.DBTX) foundcodes.Repository {
	return &memFoundCodes{m: m, db: db}
}

// ---- files ----

type memFiles struct {
	m  *MemoryRepositoryManager
	db dbx.DBTX
}

func copyFile(f *models.File) *models.File {
	c := *f
	if f.Share != nil {
		sh := *f.Share
		if f.Share.ExpiresAt != nil {
			t := *f.Share.ExpiresAt
			sh.ExpiresAt = &t
		}
		c.Share = &sh
	}
	return &c
}

func (r *memFiles) Create(_ context.Context, file *models.File) error {
	return r.m.write(r.db, func(s *memState) error {
		if _, ok := s.files[file.ID]; ok {
			return common.ErrorAlreadyExists
		}
		s.files[file.ID] = copyFile(file)
		return nil
	})
}

func (r *memFiles) GetByID(_ context.Context, id string) (*models.File, error) {
	var out *models.File
	err := r.m.read(func(s *memState) error {
		f, ok := s.files[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = copyFile(f)
		return nil
	})
	return out, err
}

func (r *memFiles) GetByShareToken(_ context.Context, token string) (*models.File, error) {
	var out *models.File
	err := r.m.read(func(s *memState) error {
		for _, f := range s.files {
			if f.Share != nil && f.Share.Token == token {
				out = copyFile(f)
				return nil
			}
		}
		return common.ErrorNotFound
	})
	return out, err
}

func (r *memFiles) ListByOwner(_ context.Context, owner string) ([]*models.File, error) {
	var out []*models.File
	err := r.m.read(func(s *memState) error {
		for _, f := range s.files {
			if f.Owner == owner {
				out = append(out, copyFile(f))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, err
}

func (r *memFiles) SumSizeByOwner(_ context.Context, owner string) (int64, error) {
	var total int64
	err := r.m.read(func(s *memState) error {
		for _, f := range s.files {
			if f.Owner == owner {
				total += f.Size
			}
		}
		return nil
	})
	return total, err
}

func (r *memFiles) Delete(_ context.Context, id string) error {
	return r.m.write(r.db, func(s *memState) error {
		if _, ok := s.files[id]; !ok {
			return common.ErrorNotFound
		}
		delete(s.files, id)
		return nil
	})
}

func (r *memFiles) SetShare(_ context.Context, id string, share *models.Share) error {
	return r.m.write(r.db, func(s *memState) error {
		f, ok := s.files[id]
		if !ok {
			return common.ErrorNotFound
		}
		for _, other := range s.files {
			if other.ID != id && other.Share != nil && other.Share.Token == share.Token {
				return common.ErrorAlreadyExists
			}
		}
		f.Share = copyFile(&models.File{Share: share}).Share
		return nil
	})
}

func (r *memFiles) ClearShare(_ context.Context, id string) error {
	return r.m.write(r.db, func(s *memState) error {
		f, ok := s.files[id]
		if !ok {
			return common.ErrorNotFound
		}
		f.Share = nil
		return nil
	})
}

// LockOwner is a no-op: transactions are already serialized.
func (r *memFiles) LockOwner(context.Context, string) error { return nil }

// ---- subscriptions ----

type memSubscriptions struct {
	m  *MemoryRepositoryManager
	db dbx.DBTX
}

func (r *memSubscriptions) GetByOwner(_ context.Context, owner string) (*models.Tier, error) {
	var out *models.Tier
	err := r.m.read(func(s *memState) error {
		id, ok := s.accounts[owner]
		if !ok {
			return common.ErrorNotFound
		}
		tier, ok := s.tiers[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = &tier
		return nil
	})
	return out, err
}

func (r *memSubscriptions) Assign(_ context.Context, owner string, tierID int64) error {
	return r.m.write(r.db, func(s *memState) error {
		if _, ok := s.tiers[tierID]; !ok {
			return common.ErrorNotFound
		}
		s.accounts[owner] = tierID
		return nil
	})
}

// ---- bonuses ----

type memBonuses struct {
	m  *MemoryRepositoryManager
	db dbx.DBTX
}

func (r *memBonuses) Get(_ context.Context, owner string) (float64, error) {
	var gb float64
	err := r.m.read(func(s *memState) error {
		gb = s.bonuses[owner]
		return nil
	})
	return gb, err
}

func (r *memBonuses) Add(_ context.Context, owner string, gb float64) (float64, error) {
	var total float64
	err := r.m.write(r.db, func(s *memState) error {
		s.bonuses[owner] += gb
		total = s.bonuses[owner]
		return nil
	})
	return total, err
}

// ---- redemptions ----

type memRedemptions struct {
	m  *MemoryRepositoryManager
	db dbx.DBTX
}

func (r *memRedemptions) Exists(_ context.Context, code, owner string) (bool, error) {
	var ok bool
	err := r.m.read(func(s *memState) error {
		_, ok = s.redemptions[redemptionKey{code: code, owner: owner}]
		return nil
	})
	return ok, err
}

func (r *memRedemptions) Create(_ context.Context, red *models.Redemption) error {
	return r.m.write(r.db, func(s *memState) error {
		key := redemptionKey{code: red.Code, owner: red.Owner}
		if _, ok := s.redemptions[key]; ok {
			return common.ErrorAlreadyExists
		}
		c := *red
		s.redemptions[key] = &c
		return nil
	})
}

func (r *memRedemptions) ListByOwner(_ context.Context, owner string) ([]*models.Redemption, error) {
	var out []*models.Redemption
	err := r.m.read(func(s *memState) error {
		for k, v := range s.redemptions {
			if k.owner == owner {
				c := *v
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].RedeemedAt.After(out[j].RedeemedAt) })
	return out, err
}

// ---- special codes ----

type memSpecialCodes struct {
	m  *MemoryRepositoryManager
	db dbx.DBTX
}

func (r *memSpecialCodes) Create(_ context.Context, c *models.SpecialCode) error {
	return r.m.write(r.db, func(s *memState) error {
		if _, ok := s.special[c.Code]; ok {
			return common.ErrorAlreadyExists
		}
		sc := *c
		sc.UseCount = 0
		s.special[c.Code] = &sc
		return nil
	})
}

func (r *memSpecialCodes) GetForUpdate(_ context.Context, code string) (*models.SpecialCode, error) {
	var out *models.SpecialCode
	err := r.m.read(func(s *memState) error {
		c, ok := s.special[code]
		if !ok {
			return common.ErrorNotFound
		}
		sc := *c
		out = &sc
		return nil
	})
	return out, err
}

func (r *memSpecialCodes) IncrementUse(_ context.Context, code string) error {
	return r.m.write(r.db, func(s *memState) error {
		c, ok := s.special[code]
		if !ok || (c.MaxUses > 0 && c.UseCount >= c.MaxUses) {
			return common.ErrCodeExhausted
		}
		c.UseCount++
		return nil
	})
}

// ---- found codes ----

type memFoundCodes struct {
	m  *MemoryRepositoryManager
	db dbx.DBTX
}

func copyFound(f *models.FoundCode) *models.FoundCode {
	c := *f
	if f.UsedAt != nil {
		t := *f.UsedAt
		c.UsedAt = &t
	}
	return &c
}

func (r *memFoundCodes) Create(_ context.Context, c *models.FoundCode) error {
	return r.m.write(r.db, func(s *memState) error {
		if _, ok := s.found[c.Code]; ok {
			return common.ErrorAlreadyExists
		}
		s.found[c.Code] = copyFound(c)
		return nil
	})
}

func (r *memFoundCodes) GetForUpdate(_ context.Context, code string) (*models.FoundCode, error) {
	var out *models.FoundCode
	err := r.m.read(func(s *memState) error {
		c, ok := s.found[code]
		if !ok {
			return common.ErrorNotFound
		}
		out = copyFound(c)
		return nil
	})
	return out, err
}

func (r *memFoundCodes) MarkUsed(_ context.Context, code, owner string, at time.Time) error {
	return r.m.write(r.db, func(s *memState) error {
		c, ok := s.found[code]
		if !ok || c.Used {
			return common.ErrCodeExhausted
		}
		c.Used = true
		c.UsedBy = owner
		t := at
		c.UsedAt = &t
		return nil
	})
}
