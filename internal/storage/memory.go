// Package storage provides client-side key-value storage.
package storage

import "sync"

// MemoryEngine keeps values in process memory.
type MemoryEngine struct {
	mu     sync.RWMutex
	items  map[string][]byte
	closed bool
}

// NewMemoryEngine creates an empty in-memory engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{items: make(map[string][]byte)}
}

// Get retrieves a copy of the value stored under key.
func (e *MemoryEngine) Get(key string) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, ErrClosed
	}
	v, ok := e.items[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (e *MemoryEngine) Set(key string, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	e.items[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (e *MemoryEngine) Delete(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	delete(e.items, key)
	return nil
}

// Close marks the engine closed; later calls return ErrClosed.
func (e *MemoryEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
