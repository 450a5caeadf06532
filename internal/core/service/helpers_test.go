package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/chartered-cli/internal/cli/connection"
	"github.com/yndnr/chartered-cli/internal/core/domain"
	"github.com/yndnr/chartered-cli/internal/storage"
	"github.com/yndnr/chartered-cli/internal/telemetry/logger"
	"github.com/yndnr/chartered-cli/internal/telemetry/metric"
)

// testNow is the fixed instant the test clocks start at.
var testNow = time.Date(2029, 6, 1, 12, 0, 0, 0, time.UTC)

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testNow}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "error", Output: io.Discard})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func testTelemetry(t *testing.T) Telemetry {
	t.Helper()
	return Telemetry{Logger: quietLogger(t), Metrics: metric.NewRegistry()}
}

func testSession(token string) *domain.Session {
	return &domain.Session{
		UserID:    "u1",
		Token:     token,
		ExpiresAt: testNow.Add(time.Hour),
	}
}

func newTestPersistence(t *testing.T, kv storage.KVEngine, opts ...PersistenceOption) *SessionPersistence {
	t.Helper()
	opts = append([]PersistenceOption{WithPersistenceLogger(quietLogger(t))}, opts...)
	p, err := NewSessionPersistence(kv, opts...)
	if err != nil {
		t.Fatalf("NewSessionPersistence() error = %v", err)
	}
	return p
}

func newTestStore(t *testing.T, p Persister, clock *testClock) *AuthStore {
	t.Helper()
	s, err := NewAuthStore(p, WithClock(clock.Now), WithStoreLogger(quietLogger(t)))
	if err != nil {
		t.Fatalf("NewAuthStore() error = %v", err)
	}
	return s
}

// mockBackend is an httptest server with per-path handlers and a hit
// counter.
type mockBackend struct {
	*httptest.Server
	mux  *http.ServeMux
	hits atomic.Int32
}

func newMockBackend(t *testing.T) *mockBackend {
	t.Helper()
	b := &mockBackend{mux: http.NewServeMux()}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.hits.Add(1)
		b.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.Close)
	return b
}

// handle registers fn for the given token segment and backend path.
func (b *mockBackend) handle(token, path string, fn http.HandlerFunc) {
	b.mux.HandleFunc("/a/"+token+"/web/v1/"+path, fn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonReply(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, v)
	}
}

func newTestGateway(t *testing.T, b *mockBackend, store *AuthStore) *connection.Gateway {
	t.Helper()
	g, err := connection.NewGateway(store, connection.Config{BaseURL: b.URL},
		connection.WithMetrics(metric.NewRegistry()),
		connection.WithLogger(quietLogger(t)),
	)
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}
	return g
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
