package session

import (
	"context"
	"sync"
	"time"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
)

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.Session)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[key]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return clone(s), nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[key] = clone(s)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, key)
	return nil
}

// Len returns the number of stored sessions
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
