// Package storage provides client-side key-value storage.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv engine closed")
)

// Engine names accepted by Open.
const (
	EngineFile   = "file"
	EngineBadger = "badger"
	EngineMemory = "memory"
)

// KVEngine defines the interface for client-side key-value storage.
//
// Implementation requirements:
//   - Thread-safe: concurrent reads/writes must be safe
//   - Synchronous: Set and Delete are durable when they return
type KVEngine interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if key doesn't exist.
	Get(key string) ([]byte, error)

	// Set stores a key-value pair.
	Set(key string, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases resources.
	Close() error
}

// Config configures a KV engine.
type Config struct {
	// Engine is one of "file", "badger", "memory".
	// Default: "file"
	Engine string

	// Path is the JSON file for the file engine or the directory for
	// the badger engine. Ignored by the memory engine.
	Path string
}

// Open creates the engine described by cfg.
func Open(cfg Config, logger *slog.Logger) (KVEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Engine {
	case "", EngineFile:
		e, err := NewFileEngine(cfg.Path)
		if err != nil {
			return nil, err
		}
		return e, nil
	case EngineBadger:
		e, err := NewBadgerEngine(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return e, nil
	case EngineMemory:
		return NewMemoryEngine(), nil
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
}
