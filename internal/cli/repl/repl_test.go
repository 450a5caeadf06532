package repl

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// recorder is an Executor that remembers what it ran.
type recorder struct {
	calls [][]string
	err   error
}

func (r *recorder) exec(_ context.Context, args []string) error {
	r.calls = append(r.calls, args)
	return r.err
}

func newTestREPL(input string, rec *recorder) (*REPL, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	r := New(rec.exec,
		WithIO(strings.NewReader(input), out, errOut),
		WithHistory(NewHistory("", 10)),
		WithCompleter(NewCompleter([]string{"login", "logout", "session status", "session extend"})),
	)
	return r, out, errOut
}

func TestREPL_Run_Exit(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"exit command", "exit\n"},
		{"quit command", "quit\n"},
		{"EOF", ""},
		{"exit after blank lines", "\n\n\nexit\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			r, _, _ := newTestREPL(tt.input, rec)

			if err := r.Run(context.Background()); err != nil {
				t.Errorf("Run() error = %v", err)
			}
			if len(rec.calls) != 0 {
				t.Errorf("executor called with %v", rec.calls)
			}
		})
	}
}

func TestREPL_Run_Executes(t *testing.T) {
	rec := &recorder{}
	r, out, _ := newTestREPL("session status\n  request 'crates/serde' --data \"{\\\"a\\\":1}\"  \nexit\n", rec)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := [][]string{
		{"session", "status"},
		{"request", "crates/serde", "--data", `{"a":1}`},
	}
	if !reflect.DeepEqual(rec.calls, want) {
		t.Errorf("calls = %q, want %q", rec.calls, want)
	}
	if n := strings.Count(out.String(), "chartered> "); n != 3 {
		t.Errorf("prompts = %d, want 3", n)
	}
}

func TestREPL_Run_LastLineWithoutNewline(t *testing.T) {
	rec := &recorder{}
	r, _, _ := newTestREPL("logout", rec)

	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rec.calls) != 1 || rec.calls[0][0] != "logout" {
		t.Errorf("calls = %v, want [[logout]]", rec.calls)
	}
}

func TestREPL_Run_ErrorsDoNotStopShell(t *testing.T) {
	rec := &recorder{err: errors.New("not logged in")}
	r, _, errOut := newTestREPL("session extend\nsession status\n", rec)

	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rec.calls) != 2 {
		t.Errorf("calls = %d, want 2", len(rec.calls))
	}
	if n := strings.Count(errOut.String(), "Error: not logged in"); n != 2 {
		t.Errorf("error lines = %d, want 2:\n%s", n, errOut.String())
	}
}

func TestREPL_Run_Builtins(t *testing.T) {
	rec := &recorder{}
	r, out, errOut := newTestREPL("help session\nlogin\nhistory\necho 'oops\nexit\n", rec)

	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"session extend\n", "session status\n", "    1  help session\n", "    2  login\n"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if !strings.Contains(errOut.String(), "unterminated") {
		t.Errorf("expected quote error, got %q", errOut.String())
	}
	if len(rec.calls) != 1 {
		t.Errorf("calls = %v, want only login", rec.calls)
	}
}

func TestREPL_Run_PlainHelpGoesToExecutor(t *testing.T) {
	rec := &recorder{}
	r, _, _ := newTestREPL("help\n", rec)

	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rec.calls) != 1 || rec.calls[0][0] != "help" {
		t.Errorf("calls = %v, want [[help]]", rec.calls)
	}
}

func TestREPL_Run_CancelledContext(t *testing.T) {
	rec := &recorder{}
	r, _, _ := newTestREPL("login\n", rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("executor ran after cancel: %v", rec.calls)
	}
}

func TestREPL_Prompt(t *testing.T) {
	rec := &recorder{}
	out := &bytes.Buffer{}
	r := New(rec.exec,
		WithIO(strings.NewReader("exit\n"), out, &bytes.Buffer{}),
		WithPrompt(func() string { return "chartered(u1)> " }),
	)

	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "chartered(u1)> ") {
		t.Errorf("prompt = %q", out.String())
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"login", []string{"login"}, false},
		{"  session   status ", []string{"session", "status"}, false},
		{`request "a b" c`, []string{"request", "a b", "c"}, false},
		{`request 'a "b"'`, []string{"request", `a "b"`}, false},
		{`a\ b`, []string{"a b"}, false},
		{`x ''`, []string{"x", ""}, false},
		{`'a\b'`, []string{`a\b`}, false},
		{`"open`, nil, true},
		{`trail\`, nil, true},
		{"   ", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SplitArgs(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}
