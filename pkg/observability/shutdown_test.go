package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestNewShutdownManager(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{
			name:            "with custom timeout",
			timeout:         10 * time.Second,
			expectedTimeout: 10 * time.Second,
		},
		{
			name:            "with zero timeout uses default",
			timeout:         0,
			expectedTimeout: 30 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(InfoLevel, &bytes.Buffer{})
			server := &http.Server{}

			sm := NewShutdownManager(logger, server, tt.timeout)

			if sm == nil {
				t.Fatal("Expected non-nil shutdown manager")
			}
			if sm.server != server {
				t.Error("Server not set correctly")
			}
			if sm.shutdownTimeout != tt.expectedTimeout {
				t.Errorf("Expected timeout %v, got %v", tt.expectedTimeout, sm.shutdownTimeout)
			}
		})
	}
}

func TestShutdownManager_Register(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, 5*time.Second)

	sm.Register("store", func(ctx context.Context) error { return nil })
	sm.Register("usage", func(ctx context.Context) error { return nil })

	if len(sm.shutdownFuncs) != 2 {
		t.Errorf("Expected 2 shutdown functions, got %d", len(sm.shutdownFuncs))
	}
	if sm.shutdownFuncs[0].name != "store" {
		t.Errorf("Expected first registered name to be store, got %s", sm.shutdownFuncs[0].name)
	}

	// Registration must be safe from concurrent setup goroutines.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sm.Register("extra", func(ctx context.Context) error { return nil })
		}()
	}
	wg.Wait()

	if len(sm.shutdownFuncs) != 12 {
		t.Errorf("Expected 12 shutdown functions, got %d", len(sm.shutdownFuncs))
	}
}

// waitForShutdown runs WaitForShutdown in a goroutine, delivers SIGTERM to
// the test process once the manager is listening, and returns the result.
func waitForShutdown(t *testing.T, sm *ShutdownManager) error {
	t.Helper()

	errCh := make(chan error, 1)
	go func() {
		errCh <- sm.WaitForShutdown()
	}()

	// Give WaitForShutdown time to install its signal handler before
	// delivering the signal.
	time.Sleep(100 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Failed to send SIGTERM: %v", err)
	}

	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForShutdown did not return after SIGTERM")
		return nil
	}
}

func TestShutdownManager_WaitForShutdown_RunsHooks(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, 2*time.Second)

	var mu sync.Mutex
	ran := make(map[string]bool)
	sm.Register("store", func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		ran["store"] = true
		return nil
	})
	sm.Register("tracer", func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		ran["tracer"] = true
		return nil
	})

	if err := waitForShutdown(t, sm); err != nil {
		t.Fatalf("Expected clean shutdown, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !ran["store"] || !ran["tracer"] {
		t.Errorf("Expected all hooks to run, got %v", ran)
	}
}

func TestShutdownManager_WaitForShutdown_DrainsServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	server := &http.Server{Handler: http.NotFoundHandler()}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ln)
	}()

	logger := NewLogger(ErrorLevel, io.Discard)
	sm := NewShutdownManager(logger, server, 2*time.Second)

	if err := waitForShutdown(t, sm); err != nil {
		t.Fatalf("Expected clean shutdown, got %v", err)
	}

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Expected ErrServerClosed from Serve, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Server did not stop serving after shutdown")
	}
}

func TestShutdownManager_WaitForShutdown_HookError(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, 2*time.Second)

	sm.Register("store", func(ctx context.Context) error {
		return errors.New("connection already closed")
	})
	sm.Register("usage", func(ctx context.Context) error {
		return nil
	})

	err := waitForShutdown(t, sm)
	if err == nil {
		t.Fatal("Expected error from failing hook")
	}
	if !strings.Contains(err.Error(), "shutdown completed with 1 errors") {
		t.Errorf("Expected aggregated error message, got %v", err)
	}
}

func TestShutdownManager_WaitForShutdown_Timeout(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)
	sm := NewShutdownManager(logger, nil, 200*time.Millisecond)

	release := make(chan struct{})
	defer close(release)
	sm.Register("stuck", func(ctx context.Context) error {
		<-release
		return nil
	})

	err := waitForShutdown(t, sm)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !strings.Contains(err.Error(), "shutdown timeout reached") {
		t.Errorf("Expected timeout error, got %v", err)
	}
}
