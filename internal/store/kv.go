// ABOUTME: Synchronous key/value primitive backing the local session store
// ABOUTME: Defines the KV interface and an in-memory implementation for tests

package store

import (
	"errors"
	"sync"
)

// ErrNoKey is returned by KV.Get when the key has no stored value.
var ErrNoKey = errors.New("key not found")

// KV is the synchronous persistence primitive LocalStore is built on.
// Values are string-serialized JSON. Implementations must complete each
// operation before returning; there are no suspension points.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// MemoryKV is an in-memory KV used by tests and as a fallback when no
// database path is configured.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// Get returns the value for key, or ErrNoKey.
func (m *MemoryKV) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNoKey
	}
	return v, nil
}

// Set stores value under key, replacing any previous value.
func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (m *MemoryKV) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Close is a no-op for the in-memory implementation.
func (m *MemoryKV) Close() error { return nil }
