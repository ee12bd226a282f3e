package tokenstore

import (
	"context"
	"sync"
)

// MemoryStore keeps the token for the life of the process only.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
	set   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return "", ErrNotFound
	}
	return m.token, nil
}

func (m *MemoryStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	m.token, m.set = token, true
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.token, m.set = "", false
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
