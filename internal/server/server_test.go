package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return New(h, 0, time.Second, time.Second, 2*time.Second, logger)
}

func TestServer_HooksRunInReverseOrder(t *testing.T) {
	t.Parallel()

	s := newTestServer()

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"producer", "analytics-worker", "mailer-worker"} {
		s.OnShutdown(name, func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}

	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	want := []string{"mailer-worker", "analytics-worker", "producer"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestServer_HookErrorsAreJoined(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	errA := errors.New("a failed")
	ran := false

	s.OnShutdown("last", func(ctx context.Context) error {
		ran = true
		return nil
	})
	s.OnShutdown("a", func(ctx context.Context) error { return errA })

	err := s.Shutdown()
	if !errors.Is(err, errA) {
		t.Fatalf("Shutdown() error = %v, want %v", err, errA)
	}
	if !ran {
		t.Error("a failing hook stopped the remaining hooks")
	}
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	stopped := make(chan struct{})
	s.OnShutdown("worker", func(ctx context.Context) error {
		close(stopped)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	select {
	case <-stopped:
	default:
		t.Error("shutdown hook did not run")
	}
}
