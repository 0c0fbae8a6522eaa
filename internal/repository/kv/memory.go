package kv

import (
	"context"
	"sync"

	"storefront/internal/domain"
)

type memoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemory returns a process-local Store.
func NewMemory() Store {
	return &memoryStore{slots: make(map[string][]byte)}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	v, ok := m.slots[key]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	m.slots[key] = v
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.slots, key)
	m.mu.Unlock()
	return nil
}
