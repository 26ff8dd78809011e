package storage

import (
	"bytes"
	"sync"
)

// MemDB keeps everything in a map. Tests and ephemeral hosts use it.
type MemDB struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{entries: make(map[string][]byte)}
}

func (m *MemDB) Put(key []byte, value []byte) error {
	m.mu.Lock()
	m.entries[string(key)] = bytes.Clone(value)
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the stored value.
func (m *MemDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if value, ok := m.entries[string(key)]; ok {
		return bytes.Clone(value), nil
	}
	return nil, ErrNotFound
}

func (m *MemDB) Delete(key []byte) error {
	m.mu.Lock()
	delete(m.entries, string(key))
	m.mu.Unlock()
	return nil
}

func (m *MemDB) Write(batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	batch.replay(
		func(key, value []byte) { m.entries[string(key)] = value },
		func(key []byte) { delete(m.entries, string(key)) },
	)
	return nil
}

// Len returns the number of stored keys.
func (m *MemDB) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemDB) Close() {}
