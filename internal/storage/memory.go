package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Store used by tests and one-shot embedding
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte

	// FailSave, when set, is returned by Save instead of storing
	FailSave error
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

// Load returns a copy of the stored document
func (m *Memory) Load(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.docs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Save stores a copy of data
func (m *Memory) Save(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSave != nil {
		return m.FailSave
	}
	m.docs[key] = append([]byte(nil), data...)
	return nil
}

// Has reports whether key has ever been written
func (m *Memory) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[key]
	return ok
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}
