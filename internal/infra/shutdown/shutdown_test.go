package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

// waitAsync runs WaitContext in the background and returns its result
// channel.
func waitAsync(h *Handler, ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.WaitContext(ctx) }()
	return errCh
}

func waitResult(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
		return nil
	}
}

func TestNewHandler(t *testing.T) {
	h := NewHandler(3 * time.Second)
	if h.timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", h.timeout)
	}
	if h.Reason() != "" {
		t.Errorf("Reason() = %q before shutdown", h.Reason())
	}
	select {
	case <-h.Done():
		t.Error("Done() closed before shutdown")
	default:
	}
}

func TestHandler_Trigger(t *testing.T) {
	h := NewHandler(time.Second)

	var stopped atomic.Bool
	h.OnShutdown(func(context.Context) error {
		stopped.Store(true)
		return nil
	})

	errCh := waitAsync(h, context.Background())
	h.Trigger()
	h.Trigger()

	if err := waitResult(t, errCh); err != nil {
		t.Errorf("WaitContext() error = %v", err)
	}
	if !stopped.Load() {
		t.Error("hook did not run")
	}
	if h.Reason() != ReasonTriggered {
		t.Errorf("Reason() = %q, want %q", h.Reason(), ReasonTriggered)
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done() not closed after shutdown")
	}
}

func TestHandler_TriggerBeforeWait(t *testing.T) {
	h := NewHandler(time.Second)
	h.Trigger()

	if err := waitResult(t, waitAsync(h, context.Background())); err != nil {
		t.Errorf("WaitContext() error = %v", err)
	}
	if h.Reason() != ReasonTriggered {
		t.Errorf("Reason() = %q, want %q", h.Reason(), ReasonTriggered)
	}
}

func TestHandler_WaitContext_Cancelled(t *testing.T) {
	h := NewHandler(time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := waitAsync(h, ctx)
	cancel()

	if err := waitResult(t, errCh); err != nil {
		t.Errorf("WaitContext() error = %v", err)
	}
	if h.Reason() != ReasonContext {
		t.Errorf("Reason() = %q, want %q", h.Reason(), ReasonContext)
	}
}

func TestHandler_Signal(t *testing.T) {
	h := NewHandler(time.Second)
	errCh := waitAsync(h, context.Background())

	// Give WaitContext time to install the handler before signalling.
	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("send SIGTERM: %v", err)
	}

	if err := waitResult(t, errCh); err != nil {
		t.Errorf("WaitContext() error = %v", err)
	}
	if h.Reason() != ReasonSignal {
		t.Errorf("Reason() = %q, want %q", h.Reason(), ReasonSignal)
	}
}

func TestHandler_HooksRunInReverse(t *testing.T) {
	h := NewHandler(time.Second)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"storage", "sync", "metrics"} {
		h.OnShutdown(func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	h.Trigger()
	if err := h.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	want := []string{"metrics", "sync", "storage"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestHandler_HookErrorsJoined(t *testing.T) {
	h := NewHandler(time.Second)
	errA := errors.New("close metrics server")
	errB := errors.New("close storage")

	var ran atomic.Int32
	h.OnShutdown(func(context.Context) error { ran.Add(1); return errB })
	h.OnShutdown(func(context.Context) error { ran.Add(1); return nil })
	h.OnShutdown(func(context.Context) error { ran.Add(1); return errA })

	h.Trigger()
	err := h.Wait()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Wait() error = %v, want both hook errors", err)
	}
	if ran.Load() != 3 {
		t.Errorf("%d hooks ran, want 3", ran.Load())
	}
}

func TestHandler_HookDeadline(t *testing.T) {
	h := NewHandler(50 * time.Millisecond)
	h.OnShutdown(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	h.Trigger()
	start := time.Now()
	err := h.Wait()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("hook deadline not applied")
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(time.Second)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown(func(context.Context) error { return nil })
		}()
	}
	wg.Wait()

	h.mu.Lock()
	n := len(h.hooks)
	h.mu.Unlock()
	if n != 20 {
		t.Errorf("registered %d hooks, want 20", n)
	}
}
