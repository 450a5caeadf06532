package service

import (
	"fmt"
	"sync"

	"github.com/yndnr/chartered-cli/internal/infra/confloader"
	"github.com/yndnr/chartered-cli/internal/telemetry/logger"
)

// SessionSync reloads the AuthStore when the session file is changed by
// another process. Only the file storage engine has a path to watch.
type SessionSync struct {
	store   *AuthStore
	path    string
	watcher *confloader.Watcher
	logger  logger.Logger

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewSessionSync creates a sync for the session file at path. The file's
// directory must exist.
func NewSessionSync(store *AuthStore, path string, log logger.Logger) (*SessionSync, error) {
	if store == nil {
		return nil, fmt.Errorf("session sync: store is required")
	}
	if path == "" {
		return nil, fmt.Errorf("session sync: path is required")
	}
	if log == nil {
		log = logger.Default()
	}

	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return nil, fmt.Errorf("session sync: %w", err)
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, fmt.Errorf("session sync: watch %s: %w", path, err)
	}

	s := &SessionSync{
		store:   store,
		path:    path,
		watcher: w,
		logger:  log,
	}
	w.OnChange(s.onFileChange)
	return s, nil
}

// Start begins watching in the background. It is idempotent.
func (s *SessionSync) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	s.watcher.StartAsync()
}

// Close stops watching.
func (s *SessionSync) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.watcher.Stop()
}

// Path returns the watched file.
func (s *SessionSync) Path() string {
	return s.path
}

func (s *SessionSync) onFileChange(path string) {
	if err := s.store.Reload(); err != nil {
		s.logger.Warn("reload session after file change", "file", path, "error", err)
	}
}
