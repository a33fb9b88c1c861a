package chatclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func ignoreHTTPIdle() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	}
}

// healthServer answers /health with 503 until healthyAfter probes have been
// made, then with 200.
func healthServer(healthyAfter int32) (*httptest.Server, *atomic.Int32) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := hits.Add(1)
		if healthyAfter > 0 && n >= healthyAfter {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	return server, &hits
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestMonitorConnectionReconnects(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreHTTPIdle()...)

	server, hits := healthServer(3)
	defer server.Close()
	client := newTestClient(t, server.URL)
	defer client.Close()

	stop := client.MonitorConnection(context.Background(), 5*time.Millisecond)
	defer stop()

	waitFor(t, 2*time.Second, func() bool { return client.State().Connected })
	if got := hits.Load(); got < 3 {
		t.Fatalf("expected at least 3 probes before reconnecting, got %d", got)
	}

	// Connected: the monitor must stay quiet.
	settled := hits.Load()
	time.Sleep(40 * time.Millisecond)
	if got := hits.Load(); got != settled {
		t.Errorf("monitor probed while connected: %d -> %d", settled, got)
	}
}

func TestMonitorConnectionStopHaltsChecks(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreHTTPIdle()...)

	server, hits := healthServer(0)
	defer server.Close()
	client := newTestClient(t, server.URL)
	defer client.Close()

	stop := client.MonitorConnection(context.Background(), 5*time.Millisecond)
	waitFor(t, 2*time.Second, func() bool { return hits.Load() >= 2 })

	stop()
	after := hits.Load()
	time.Sleep(40 * time.Millisecond)
	if got := hits.Load(); got != after {
		t.Errorf("probes continued after stop: %d -> %d", after, got)
	}

	// Idempotent.
	stop()
}

func TestMonitorConnectionEndsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreHTTPIdle()...)

	server, _ := healthServer(0)
	defer server.Close()
	client := newTestClient(t, server.URL)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stop := client.MonitorConnection(ctx, time.Hour)
	cancel()

	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return after context cancellation")
	}
}

func TestMonitorConnectionSkipsWhileConnected(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreHTTPIdle()...)

	server, hits := healthServer(1)
	defer server.Close()
	client := newTestClient(t, server.URL)
	defer client.Close()

	if !client.CheckHealth(context.Background()) {
		t.Fatal("expected initial health check to succeed")
	}
	before := hits.Load()

	stop := client.MonitorConnection(context.Background(), 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	stop()

	if got := hits.Load(); got != before {
		t.Errorf("monitor probed a connected client: %d -> %d", before, got)
	}
}
