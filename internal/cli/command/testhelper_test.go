package command

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/urfave/cli/v2"
)

// mockServer is a fake registry backend with custom handlers.
type mockServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     map[string]int
}

// newMockServer creates a new mock server, closed with the test.
func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		handler, ok := m.handlers[r.URL.Path]
		m.hits[r.URL.Path]++
		m.mu.Unlock()

		if !ok {
			jsonResponse(w, http.StatusNotFound, map[string]string{"error": "Not found"})
			return
		}
		handler(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// handle registers a handler for {base}/a/{token}/web/v1/{path}.
func (m *mockServer) handle(token, path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[backendPath(token, path)] = handler
}

// hitCount returns how often {base}/a/{token}/web/v1/{path} was called.
func (m *mockServer) hitCount(token, path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[backendPath(token, path)]
}

func backendPath(token, path string) string {
	return "/a/" + token + "/web/v1/" + path
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorResponse writes the backend error envelope.
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// isolate points HOME at a temporary directory and clears CHARTERED_
// variables so no real config or session is touched.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, "CHARTERED_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	return home
}

// cliResult captures one CLI run.
type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI runs the app with stdin and args, as the binary would.
func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	return runCLIContext(t, context.Background(), stdin, args...)
}

func runCLIContext(t *testing.T, ctx context.Context, stdin string, args ...string) cliResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := App()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.RunContext(ctx, append([]string{"chartered-cli"}, args...))
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// loginResponse is a successful login reply for user u1.
func loginResponse(token string, expires time.Time) map[string]any {
	return map[string]any{
		"user_uuid":   "u1",
		"key":         token,
		"expires":     expires.UTC().Format(time.RFC3339),
		"picture_url": nil,
	}
}

// loginAs logs in through the password endpoint and returns the
// server's expiry.
func loginAs(t *testing.T, srv *mockServer, token string) time.Time {
	t.Helper()

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	srv.handle("-", "auth/login/password", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, loginResponse(token, expires))
	})

	res := runCLI(t, "secret\n", "--server", srv.URL, "login", "-u", "alice", "--password-stdin")
	if res.err != nil {
		t.Fatalf("login error = %v (stderr %q)", res.err, res.stderr)
	}
	return expires
}

// decodeJSON decodes CLI JSON output.
func decodeJSON(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	return m
}
