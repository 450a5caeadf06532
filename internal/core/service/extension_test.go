package service

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/chartered-cli/internal/cli/connection"
	"github.com/yndnr/chartered-cli/internal/core/domain"
	"github.com/yndnr/chartered-cli/internal/storage"
)

type extensionFixture struct {
	backend   *mockBackend
	store     *AuthStore
	scheduler *ExtensionScheduler
}

func newExtensionFixture(t *testing.T, interval time.Duration, initial *domain.Session) *extensionFixture {
	t.Helper()
	f := &extensionFixture{backend: newMockBackend(t)}

	p := newTestPersistence(t, storage.NewMemoryEngine())
	if initial != nil {
		if err := p.Save(initial); err != nil {
			t.Fatal(err)
		}
	}
	f.store = newTestStore(t, p, newTestClock())
	f.scheduler = NewExtensionScheduler(f.store, newTestGateway(t, f.backend, f.store), interval, testTelemetry(t))
	t.Cleanup(f.scheduler.Close)
	return f
}

func TestExtensionScheduler_TickExtends(t *testing.T) {
	initial := testSession("tok1")
	initial.PictureURL = "https://img.example/u1.png"
	f := newExtensionFixture(t, time.Hour, initial)

	f.backend.handle("tok1", "auth/extend",
		jsonReply(http.StatusOK, map[string]string{"expires": "2030-02-01T00:00:00Z"}))

	var reasons []domain.ChangeReason
	f.store.Subscribe(func(c Change) { reasons = append(reasons, c.Reason) })

	report := f.scheduler.TickNow(context.Background())
	if report.Result != TickExtended {
		t.Fatalf("TickNow() = %+v, want success", report)
	}

	want := initial.WithExpiry(time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC))
	if got := f.store.Current(); !got.Equal(want) {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}
	if !report.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", report.ExpiresAt, want.ExpiresAt)
	}
	if len(reasons) != 1 || reasons[0] != domain.ReasonExtend {
		t.Errorf("change reasons = %v, want [extend]", reasons)
	}
}

func TestExtensionScheduler_TickSkippedWithoutSession(t *testing.T) {
	f := newExtensionFixture(t, time.Hour, nil)

	if report := f.scheduler.TickNow(context.Background()); report.Result != TickSkipped {
		t.Errorf("TickNow() = %+v, want skipped", report)
	}
	if n := f.backend.hits.Load(); n != 0 {
		t.Errorf("backend hit %d times, want 0", n)
	}
	if f.scheduler.Running() {
		t.Error("scheduler running without a session")
	}
}

func TestExtensionScheduler_StaleResultDiscarded(t *testing.T) {
	f := newExtensionFixture(t, time.Hour, testSession("tok1"))

	replacement := testSession("tok2")
	f.backend.handle("tok1", "auth/extend", func(w http.ResponseWriter, r *http.Request) {
		// A new login lands while the extension is in flight.
		if err := f.store.Replace(replacement); err != nil {
			t.Errorf("Replace() error = %v", err)
		}
		writeJSON(w, http.StatusOK, map[string]string{"expires": "2030-02-01T00:00:00Z"})
	})

	if report := f.scheduler.TickNow(context.Background()); report.Result != TickStale {
		t.Fatalf("TickNow() = %+v, want stale", report)
	}
	if got := f.store.Current(); !got.Equal(replacement) {
		t.Errorf("Current() = %+v, want the newer session %+v", got, replacement)
	}
}

func TestExtensionScheduler_TickFailure(t *testing.T) {
	tests := []struct {
		name  string
		reply http.HandlerFunc
	}{
		{"backend error", jsonReply(http.StatusInternalServerError, map[string]string{"error": "boom"})},
		{"bad expiry", jsonReply(http.StatusOK, map[string]string{"expires": "soon"})},
		{"not json", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initial := testSession("tok1")
			f := newExtensionFixture(t, time.Hour, initial)
			f.backend.handle("tok1", "auth/extend", tt.reply)

			report := f.scheduler.TickNow(context.Background())
			if report.Result != TickFailed {
				t.Fatalf("TickNow() = %+v, want failure", report)
			}
			if !errors.Is(report.Err, domain.ErrExtensionFailed) {
				t.Errorf("Err = %v, want ErrExtensionFailed", report.Err)
			}
			if got := f.store.Current(); !got.Equal(initial) {
				t.Errorf("Current() = %+v, want unchanged %+v", got, initial)
			}
			if !f.scheduler.Running() {
				t.Error("scheduler stopped after a transient failure")
			}
		})
	}
}

func TestExtensionScheduler_UnauthorizedLogsOut(t *testing.T) {
	f := newExtensionFixture(t, time.Hour, testSession("tok1"))
	f.backend.handle("tok1", "auth/extend",
		jsonReply(http.StatusUnauthorized, map[string]string{"error": "Session expired"}))

	report := f.scheduler.TickNow(context.Background())
	if report.Result != TickFailed {
		t.Fatalf("TickNow() = %+v, want failure", report)
	}
	if !errors.Is(report.Err, domain.ErrSessionExpired) {
		t.Errorf("Err = %v, want ErrSessionExpired cause", report.Err)
	}
	if f.store.IsAuthenticated() {
		t.Error("session kept after 401")
	}
	if f.scheduler.Running() {
		t.Error("scheduler still running after forced logout")
	}
}

func TestExtensionScheduler_UnauthorizedAfterExtension(t *testing.T) {
	f := newExtensionFixture(t, time.Hour, testSession("tok1"))
	f.backend.handle("tok1", "auth/extend",
		jsonReply(http.StatusOK, map[string]string{"expires": "2030-02-01T00:00:00Z"}))

	arrived := make(chan struct{})
	release := make(chan struct{})
	f.backend.handle("tok1", "crates/recently-updated", func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Expired auth token"})
	})

	gw := newTestGateway(t, f.backend, f.store)
	errCh := make(chan error, 1)
	go func() {
		_, err := gw.Do(context.Background(), connection.Call{Path: "crates/recently-updated", Authenticated: true})
		errCh <- err
	}()

	<-arrived
	if report := f.scheduler.TickNow(context.Background()); report.Result != TickExtended {
		t.Fatalf("TickNow() = %+v, want success", report)
	}
	close(release)

	if err := <-errCh; !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("Do() error = %v, want ErrSessionExpired", err)
	}
	if f.store.IsAuthenticated() {
		t.Error("IsAuthenticated() = true after a 401 that followed an extension")
	}
	if f.scheduler.Running() {
		t.Error("scheduler still running after forced logout")
	}
}

func TestExtensionScheduler_LocallyExpiredStillExtends(t *testing.T) {
	clock := newTestClock()
	backend := newMockBackend(t)
	p := newTestPersistence(t, storage.NewMemoryEngine())
	store := newTestStore(t, p, clock)
	sched := NewExtensionScheduler(store, newTestGateway(t, backend, store), time.Hour, testTelemetry(t))
	t.Cleanup(sched.Close)

	backend.handle("tok1", "auth/extend",
		jsonReply(http.StatusOK, map[string]string{"expires": "2030-02-01T00:00:00Z"}))

	if err := store.Replace(testSession("tok1")); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Hour)

	if report := sched.TickNow(context.Background()); report.Result != TickExtended {
		t.Fatalf("TickNow() = %+v, want success", report)
	}
	if !store.IsAuthenticated() {
		t.Error("IsAuthenticated() = false after extension")
	}
}

func TestExtensionScheduler_FollowsStore(t *testing.T) {
	f := newExtensionFixture(t, time.Hour, nil)

	if f.scheduler.Running() {
		t.Fatal("scheduler running before login")
	}

	if err := f.store.Replace(testSession("tok1")); err != nil {
		t.Fatal(err)
	}
	if !f.scheduler.Running() {
		t.Error("scheduler not running after login")
	}

	// Starting twice keeps a single timer.
	f.scheduler.Start()
	f.scheduler.Start()

	if err := f.store.Replace(nil); err != nil {
		t.Fatal(err)
	}
	if f.scheduler.Running() {
		t.Error("scheduler running after logout")
	}
}

func TestExtensionScheduler_StartsWithHydratedSession(t *testing.T) {
	f := newExtensionFixture(t, time.Hour, testSession("tok1"))
	if !f.scheduler.Running() {
		t.Error("scheduler not running for a hydrated session")
	}
}

func TestExtensionScheduler_PeriodicTicks(t *testing.T) {
	var extends atomic.Int32
	f := newExtensionFixture(t, 20*time.Millisecond, testSession("tok1"))
	f.backend.handle("tok1", "auth/extend", func(w http.ResponseWriter, r *http.Request) {
		extends.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"expires": "2030-02-01T00:00:00Z"})
	})

	if !waitFor(t, 2*time.Second, func() bool { return extends.Load() >= 2 }) {
		t.Fatalf("extend called %d times, want at least 2", extends.Load())
	}

	f.scheduler.Close()
	after := extends.Load()
	time.Sleep(60 * time.Millisecond)
	if got := extends.Load(); got != after {
		t.Errorf("extend called %d more times after Close()", got-after)
	}
	if f.scheduler.Running() {
		t.Error("Running() = true after Close()")
	}
}

func TestExtensionScheduler_CloseDetaches(t *testing.T) {
	f := newExtensionFixture(t, time.Hour, nil)
	f.scheduler.Close()

	if err := f.store.Replace(testSession("tok1")); err != nil {
		t.Fatal(err)
	}
	if f.scheduler.Running() {
		t.Error("closed scheduler restarted on login")
	}

	// Close is idempotent.
	f.scheduler.Close()
}
