package store

import (
	"context"
	"fmt"
	"sync"

	"retailsmart/internal/apperr"
)

// MemoryKV is an in-process key/value store. Data is lost on restart.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV creates an empty MemoryKV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// Get retrieves the value stored at key
func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", apperr.ErrKeyNotFound, key)
	}
	return v, nil
}

// Set stores value at key
func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	return nil
}

// SetMany stores every entry atomically
func (m *MemoryKV) SetMany(_ context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range entries {
		m.data[k] = v
	}
	return nil
}
