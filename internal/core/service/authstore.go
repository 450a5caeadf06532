package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/yndnr/chartered-cli/internal/core/domain"
	"github.com/yndnr/chartered-cli/internal/telemetry/logger"
)

// Change is delivered to subscribers after every replace.
type Change struct {
	// Session is the new session, nil after a logout.
	Session *domain.Session

	// Generation is the store generation after the change.
	Generation uint64

	// Reason says what caused the change.
	Reason domain.ChangeReason
}

// Persister stores the session record. *SessionPersistence implements it.
type Persister interface {
	Load() *domain.Session
	Save(s *domain.Session) error
}

// AuthStore is the single source of truth for the current session.
//
// Replace, ReplaceIf and ClearIfToken are the only mutators. Each one
// updates memory, bumps the generation, persists, and notifies subscribers
// in subscription order, all before returning. Subscribers run under the
// writer lock and must not call Replace themselves.
type AuthStore struct {
	persist Persister
	now     func() time.Time
	logger  logger.Logger

	writeMu sync.Mutex // serializes writers across persist and notify

	mu      sync.RWMutex
	session *domain.Session
	gen     uint64

	subMu     sync.Mutex
	subs      map[uint64]func(Change)
	subOrder  []uint64
	nextSubID uint64
}

// AuthStoreOption configures an AuthStore.
type AuthStoreOption func(*AuthStore)

// WithClock sets the time source. Default: time.Now.
func WithClock(now func() time.Time) AuthStoreOption {
	return func(a *AuthStore) { a.now = now }
}

// WithStoreLogger sets the logger. Default: logger.Default().
func WithStoreLogger(l logger.Logger) AuthStoreOption {
	return func(a *AuthStore) { a.logger = l }
}

// NewAuthStore creates a store hydrated from persist. A stored session
// that has already expired is cleared instead of exposed.
func NewAuthStore(persist Persister, opts ...AuthStoreOption) (*AuthStore, error) {
	if persist == nil {
		return nil, fmt.Errorf("auth store: persistence is required")
	}

	a := &AuthStore{
		persist: persist,
		now:     time.Now,
		subs:    make(map[uint64]func(Change)),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Default()
	}

	a.hydrate()
	return a, nil
}

func (a *AuthStore) hydrate() {
	s := a.persist.Load()
	if s == nil {
		return
	}

	if s.Expired(a.now()) {
		a.logger.Info("stored session expired, clearing", "session", s)
		if err := a.replace(nil, domain.ReasonHydrate); err != nil {
			a.logger.Warn("clear expired session", "error", err)
		}
		return
	}

	// No subscribers exist yet; memory only.
	a.mu.Lock()
	a.session = s
	a.gen++
	a.mu.Unlock()
	a.logger.Debug("session hydrated", "session", s)
}

// Current returns a copy of the held session, or nil when none is held
// or the held one has expired.
func (a *AuthStore) Current() *domain.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.session == nil || a.session.Expired(a.now()) {
		return nil
	}
	return a.session.Clone()
}

// Snapshot returns a copy of the held session, expired or not, with the
// current generation.
func (a *AuthStore) Snapshot() (*domain.Session, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.Clone(), a.gen
}

// Generation returns the current generation.
func (a *AuthStore) Generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.gen
}

// IsAuthenticated reports whether a usable session is held. It is the
// only expiry comparison in the program.
func (a *AuthStore) IsAuthenticated() bool {
	return a.Current() != nil
}

// ExpiresIn returns the time left on the held session, zero when none.
func (a *AuthStore) ExpiresIn() time.Duration {
	s := a.Current()
	if s == nil {
		return 0
	}
	return s.ExpiresAt.Sub(a.now())
}

// Replace installs s (nil logs out). The reason is login for a session
// and logout for nil.
func (a *AuthStore) Replace(s *domain.Session) error {
	reason := domain.ReasonLogin
	if s == nil {
		reason = domain.ReasonLogout
	}
	return a.ReplaceWithReason(s, reason)
}

// ReplaceWithReason installs s with an explicit change reason.
func (a *AuthStore) ReplaceWithReason(s *domain.Session, reason domain.ChangeReason) error {
	if s != nil {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.replace(s, reason)
}

// ReplaceIf installs s only when the generation still equals gen. It
// reports whether the change was applied.
func (a *AuthStore) ReplaceIf(gen uint64, s *domain.Session, reason domain.ChangeReason) (bool, error) {
	if s != nil {
		if err := s.Validate(); err != nil {
			return false, err
		}
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if a.Generation() != gen {
		return false, nil
	}
	return true, a.replace(s, reason)
}

// ClearIfToken logs out only while the held session still carries
// token. An extension keeps the token, so it does not shield the
// session; a newer login or an earlier clear does.
func (a *AuthStore) ClearIfToken(token string, reason domain.ChangeReason) (bool, error) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.RLock()
	held := a.session != nil && a.session.Token == token
	a.mu.RUnlock()
	if !held {
		return false, nil
	}
	return true, a.replace(nil, reason)
}

// Reload re-reads the persisted record and adopts it when it differs
// from memory. Used when another process changed the record.
func (a *AuthStore) Reload() error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	stored := a.persist.Load()

	a.mu.RLock()
	same := a.session.Equal(stored)
	a.mu.RUnlock()
	if same {
		return nil
	}

	if stored != nil && stored.Expired(a.now()) {
		stored = nil
	}
	return a.replace(stored, domain.ReasonSync)
}

// replace does the write. Callers hold writeMu.
func (a *AuthStore) replace(s *domain.Session, reason domain.ChangeReason) error {
	s = s.Clone()

	a.mu.Lock()
	a.session = s
	a.gen++
	gen := a.gen
	a.mu.Unlock()

	var persistErr error
	if err := a.persist.Save(s); err != nil {
		persistErr = fmt.Errorf("auth store: %w", err)
		a.logger.Warn("persist session", "reason", string(reason), "error", err)
	}

	a.logger.Debug("session replaced", "reason", string(reason), "generation", gen, "session", s)
	a.notify(Change{Session: s.Clone(), Generation: gen, Reason: reason})

	return persistErr
}

// Subscribe registers fn for every change. The returned func removes it.
func (a *AuthStore) Subscribe(fn func(Change)) (unsubscribe func()) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	a.nextSubID++
	id := a.nextSubID
	a.subs[id] = fn
	a.subOrder = append(a.subOrder, id)

	return func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		delete(a.subs, id)
		for i, sid := range a.subOrder {
			if sid == id {
				a.subOrder = append(a.subOrder[:i:i], a.subOrder[i+1:]...)
				break
			}
		}
	}
}

func (a *AuthStore) notify(c Change) {
	a.subMu.Lock()
	fns := make([]func(Change), 0, len(a.subOrder))
	for _, id := range a.subOrder {
		fns = append(fns, a.subs[id])
	}
	a.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
