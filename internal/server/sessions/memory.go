package sessions

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.UploadSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*models.UploadSession{}}
}

func clone(s *models.UploadSession) *models.UploadSession {
	c := *s
	c.Parts = maps.Clone(s.Parts)
	if c.Parts == nil {
		c.Parts = map[int]int64{}
	}
	return &c
}

func (m *MemoryStore) Create(_ context.Context, s *models.UploadSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return common.ErrorAlreadyExists
	}
	m.sessions[s.ID] = clone(s)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	return clone(s), nil
}

func (m *MemoryStore) PutPart(_ context.Context, id string, index int, size int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return common.ErrSessionNotFound
	}
	if s.State != models.SessionReceiving {
		return common.ErrSessionBusy
	}
	s.Parts[index] = size
	s.UpdatedAt = at
	return nil
}

func (m *MemoryStore) CompareAndSwapState(_ context.Context, id string, from, to models.SessionState) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return false, common.ErrSessionNotFound
	}
	if s.State != from {
		return false, nil
	}
	s.State = to
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListByOwner(_ context.Context, owner string) ([]*models.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.UploadSession
	for _, s := range m.sessions {
		if s.Owner == owner {
			out = append(out, clone(s))
		}
	}
	return out, nil
}

func (m *MemoryStore) ListIdle(_ context.Context, before time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(before) {
			out = append(out, id)
		}
	}
	return out, nil
}
