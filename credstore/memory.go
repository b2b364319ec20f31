package credstore

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore keeps the encoded field map in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	fields map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save replaces the stored record.
func (m *MemoryStore) Save(ctx context.Context, r *Record) error {
	fields, err := Encode(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.fields = fields
	m.mu.Unlock()
	return nil
}

// Load returns the stored record, or nil.
func (m *MemoryStore) Load(ctx context.Context) (*Record, error) {
	m.mu.RLock()
	fields := m.fields
	m.mu.RUnlock()
	if fields == nil {
		return nil, nil
	}
	return Decode(fields)
}

// Clear drops the stored record.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.fields = nil
	m.mu.Unlock()
	return nil
}

// Fields returns a copy of the raw persisted field map.
func (m *MemoryStore) Fields() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.fields)
}
