package service

import (
	"context"
	"sync"
	"time"

	"github.com/yndnr/chartered-cli/internal/cli/connection"
	"github.com/yndnr/chartered-cli/internal/core/domain"
	"github.com/yndnr/chartered-cli/internal/telemetry/logger"
)

// DefaultExtensionInterval is the renewal period.
const DefaultExtensionInterval = 60 * time.Second

// TickResult is the outcome of one extension tick.
type TickResult string

const (
	// TickSkipped: no session was held.
	TickSkipped TickResult = "skipped"
	// TickExtended: the new expiry was installed.
	TickExtended TickResult = "success"
	// TickStale: the session changed while the call was in flight; the
	// result was discarded.
	TickStale TickResult = "stale"
	// TickFailed: the call failed; the next tick retries.
	TickFailed TickResult = "failure"
)

// TickReport describes one tick. Err is informational only.
type TickReport struct {
	Result    TickResult
	ExpiresAt time.Time
	Err       error
}

type extendResponse struct {
	Expires string `json:"expires"`
}

// ExtensionScheduler renews the held session on a fixed interval.
//
// It follows the AuthStore: installing a session starts it, clearing the
// session stops it. At most one timer runs per scheduler.
type ExtensionScheduler struct {
	store    *AuthStore
	gw       connection.Doer
	interval time.Duration
	tel      Telemetry

	mu          sync.Mutex
	cancel      context.CancelFunc // non-nil while running
	closed      bool
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewExtensionScheduler creates a scheduler bound to store and starts
// it when store already holds a session.
func NewExtensionScheduler(store *AuthStore, gw connection.Doer, interval time.Duration, tel Telemetry) *ExtensionScheduler {
	if interval <= 0 {
		interval = DefaultExtensionInterval
	}

	e := &ExtensionScheduler{
		store:    store,
		gw:       gw,
		interval: interval,
		tel:      tel.withDefaults(),
	}

	e.unsubscribe = store.Subscribe(e.onChange)
	if s, _ := store.Snapshot(); s != nil {
		e.Start()
	}
	return e
}

// onChange runs inside AuthStore.Replace; it must not block.
func (e *ExtensionScheduler) onChange(c Change) {
	if c.Session == nil {
		e.Stop()
		return
	}
	e.Start()
}

// Start arms the timer. Starting a running scheduler is a no-op.
func (e *ExtensionScheduler) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.wg.Add(1)
	go e.loop(ctx)

	e.tel.Logger.Debug("extension scheduler started", "interval", e.interval)
}

// Stop disarms the timer and cancels an in-flight tick. It does not wait
// for the tick goroutine, so it is safe inside AuthStore.Replace.
func (e *ExtensionScheduler) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel == nil {
		return
	}
	e.cancel()
	e.cancel = nil

	e.tel.Logger.Debug("extension scheduler stopped")
}

// Running reports whether the timer is armed.
func (e *ExtensionScheduler) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}

// Close stops the scheduler for good, detaches it from the store and
// waits for the tick goroutine to exit.
func (e *ExtensionScheduler) Close() {
	e.mu.Lock()
	e.closed = true
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	e.wg.Wait()
}

func (e *ExtensionScheduler) loop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// TickNow runs one tick synchronously.
func (e *ExtensionScheduler) TickNow(ctx context.Context) TickReport {
	return e.tick(ctx)
}

// tick asks the backend to extend the held session. Failures are logged
// and reported, never returned as errors.
func (e *ExtensionScheduler) tick(ctx context.Context) TickReport {
	s, gen := e.store.Snapshot()
	if s == nil {
		e.tel.Metrics.RecordExtension(string(TickSkipped))
		return TickReport{Result: TickSkipped}
	}

	log := e.tel.Logger.With("session", s)
	if !e.store.IsAuthenticated() {
		// A lapsed local clock must not block renewal; the server decides.
		log.Debug("local expiry passed, extending anyway")
	}

	resp, err := connection.Request[extendResponse](ctx, e.gw, connection.Call{
		Path:          pathExtend,
		Authenticated: true,
	})
	if err == nil {
		var expires time.Time
		expires, err = parseServerTime(resp.Expires)
		if err == nil {
			return e.apply(gen, s.WithExpiry(expires), log)
		}
		err = domain.ErrBadResponse.WithCause(err)
	}

	failure := domain.ErrExtensionFailed.WithCause(err)
	if ctx.Err() != nil {
		log.Debug("session extension cancelled", "error", err)
	} else {
		log.Warn("session extension failed", "error", err)
	}
	e.tel.Metrics.RecordExtension(string(TickFailed))
	return TickReport{Result: TickFailed, Err: failure}
}

func (e *ExtensionScheduler) apply(gen uint64, extended *domain.Session, log logger.Logger) TickReport {
	applied, err := e.store.ReplaceIf(gen, extended, domain.ReasonExtend)
	if err != nil {
		log.Warn("persist extended session", "error", err)
	}
	if !applied {
		log.Debug("session changed during extension, result discarded")
		e.tel.Metrics.RecordExtension(string(TickStale))
		return TickReport{Result: TickStale}
	}

	log.Debug("session extended", "expires_at", extended.ExpiresAt)
	e.tel.Metrics.RecordExtension(string(TickExtended))
	return TickReport{Result: TickExtended, ExpiresAt: extended.ExpiresAt}
}
