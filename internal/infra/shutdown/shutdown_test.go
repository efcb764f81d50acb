package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestNewHandler(t *testing.T) {
	h := NewHandler(5 * time.Second)
	if h == nil {
		t.Fatal("NewHandler returned nil")
	}
	if h.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", h.timeout)
	}
	if h.done == nil {
		t.Error("done channel should be initialized")
	}
}

func TestHandler_RunReverseOrder(t *testing.T) {
	h := NewHandler(5 * time.Second)

	var callOrder []int
	for i := 1; i <= 3; i++ {
		i := i
		h.OnShutdown(func(context.Context) error {
			callOrder = append(callOrder, i)
			return nil
		})
	}

	if err := h.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []int{3, 2, 1}
	if len(callOrder) != len(want) {
		t.Fatalf("hooks called %d times, want %d", len(callOrder), len(want))
	}
	for i := range want {
		if callOrder[i] != want[i] {
			t.Fatalf("call order = %v, want %v", callOrder, want)
		}
	}
}

func TestHandler_RunReturnsLastError(t *testing.T) {
	h := NewHandler(5 * time.Second)

	errA := errors.New("hook a failed")
	errB := errors.New("hook b failed")

	// Registered a, b → runs b, a; the last error seen is a's.
	h.OnShutdown(func(context.Context) error { return errA })
	h.OnShutdown(func(context.Context) error { return errB })

	if err := h.Run(); !errors.Is(err, errA) {
		t.Errorf("Run() = %v, want %v", err, errA)
	}
}

func TestHandler_RunClosesDone(t *testing.T) {
	h := NewHandler(5 * time.Second)

	select {
	case <-h.Done():
		t.Fatal("Done channel closed before Run")
	default:
	}

	if err := h.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed after Run")
	}
}

func TestHandler_HookGetsBoundedContext(t *testing.T) {
	h := NewHandler(10 * time.Millisecond)

	h.OnShutdown(func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("hook context has no deadline")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			t.Error("hook context was not cancelled at the timeout")
			return nil
		}
	})

	if err := h.Run(); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v, want DeadlineExceeded", err)
	}
}

func TestHandler_WaitWithSignal(t *testing.T) {
	h := NewHandler(5 * time.Second)

	var called bool
	h.OnShutdown(func(context.Context) error {
		called = true
		return nil
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.Wait()
	}()

	// Give Wait time to install the signal handler.
	time.Sleep(50 * time.Millisecond)
	syscall.Kill(syscall.Getpid(), syscall.SIGINT)

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Wait() returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
	}

	if !called {
		t.Error("hook was not called")
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(5 * time.Second)

	const numHooks = 10
	var wg sync.WaitGroup
	for i := 0; i < numHooks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown(func(context.Context) error { return nil })
		}()
	}
	wg.Wait()

	h.mu.Lock()
	if len(h.hooks) != numHooks {
		t.Errorf("expected %d hooks, got %d", numHooks, len(h.hooks))
	}
	h.mu.Unlock()
}
