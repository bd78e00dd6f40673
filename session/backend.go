package session

import (
	"context"
	"sync"
)

// Batch is a set of writes a Backend must apply atomically.
type Batch struct {
	Set    map[string][]byte
	Delete []string
}

// Backend is the durable key/value layer under a Store. Keys and values
// are already opaque when they reach it.
type Backend interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Apply performs every set and delete in batch, or none of them.
	// Deleting a missing key is not an error.
	Apply(ctx context.Context, batch Batch) error

	// Close releases backend resources.
	Close() error
}

// MemoryBackend keeps entries in process memory. Contents are lost when
// the process exits.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Apply(_ context.Context, batch Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range batch.Set {
		m.entries[k] = append([]byte(nil), v...)
	}
	for _, k := range batch.Delete {
		delete(m.entries, k)
	}
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

// Len returns the number of stored entries.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Snapshot returns a copy of every stored entry.
func (m *MemoryBackend) Snapshot() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.entries))
	for k, v := range m.entries {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
