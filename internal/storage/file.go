// Package storage provides client-side key-value storage.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileEngine stores every key in one JSON document.
//
// The document is re-read on every Get so that writes made by other
// processes are observed, and replaced atomically (temp file + rename)
// on every Set and Delete.
type FileEngine struct {
	path   string
	mu     sync.Mutex
	closed bool
}

// NewFileEngine creates a file engine backed by path. The file and its
// directory are created on first write.
func NewFileEngine(path string) (*FileEngine, error) {
	if path == "" {
		return nil, fmt.Errorf("file engine: path is required")
	}
	return &FileEngine{path: path}, nil
}

// Path returns the backing file path.
func (e *FileEngine) Path() string {
	return e.path
}

// Get retrieves a value by key.
func (e *FileEngine) Get(key string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	doc, err := e.read()
	if err != nil {
		return nil, err
	}
	v, ok := doc[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

// Set stores a key-value pair.
func (e *FileEngine) Set(key string, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	doc, err := e.read()
	if err != nil {
		// A corrupt document is replaced rather than blocking every write.
		doc = make(map[string][]byte)
	}
	doc[key] = value
	return e.write(doc)
}

// Delete removes a key.
func (e *FileEngine) Delete(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	doc, err := e.read()
	if err != nil {
		doc = make(map[string][]byte)
	}
	if _, ok := doc[key]; !ok && err == nil {
		return nil
	}
	delete(doc, key)
	return e.write(doc)
}

// Close marks the engine closed.
func (e *FileEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// read loads the document. A missing file is an empty document.
func (e *FileEngine) read() (map[string][]byte, error) {
	data, err := os.ReadFile(e.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string][]byte), nil
	}
	if err != nil {
		return nil, fmt.Errorf("file engine: read %s: %w", e.path, err)
	}
	if len(data) == 0 {
		return make(map[string][]byte), nil
	}

	doc := make(map[string][]byte)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("file engine: parse %s: %w", e.path, err)
	}
	return doc, nil
}

// write replaces the document atomically with mode 0600.
func (e *FileEngine) write(doc map[string][]byte) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("file engine: encode: %w", err)
	}

	dir := filepath.Dir(e.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("file engine: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(e.path)+".*")
	if err != nil {
		return fmt.Errorf("file engine: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file engine: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file engine: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file engine: close: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file engine: chmod: %w", err)
	}
	if err := os.Rename(tmpName, e.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file engine: rename: %w", err)
	}
	return nil
}
