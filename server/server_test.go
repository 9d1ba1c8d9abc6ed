package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cotyar/tagstream/codec"
	"github.com/cotyar/tagstream/event"
	"github.com/cotyar/tagstream/health"
	"github.com/cotyar/tagstream/journal"
	"github.com/cotyar/tagstream/server"
	"github.com/cotyar/tagstream/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, store *journal.MemStore) *httptest.Server {
	t.Helper()

	checker := health.NewChecker()
	checker.Register("journal")
	checker.SetStatus("journal", health.StatusUp)
	readiness := health.NewReadinessChecker()
	readiness.SetReady(true)

	srv := server.NewStreamServer(store, codec.JSONDecoder{}, testLogger(),
		server.WithRefreshInterval(10*time.Millisecond),
		server.WithHeartbeat(time.Minute),
		server.WithWindow(2),
	)
	ts := httptest.NewServer(srv.Handler(checker, readiness))
	t.Cleanup(ts.Close)
	return ts
}

// readSSEEvents reads n data events from an open SSE response body.
func readSSEEvents(t *testing.T, body *bufio.Scanner, n int) []event.Envelope {
	t.Helper()

	out := make([]event.Envelope, 0, n)
	for len(out) < n && body.Scan() {
		line := body.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var e event.Envelope
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e); err != nil {
			t.Fatalf("unmarshal SSE data %q: %v", line, err)
		}
		out = append(out, e)
	}
	if len(out) < n {
		t.Fatalf("read %d of %d SSE events (scan err: %v)", len(out), n, body.Err())
	}
	return out
}

func seedOrders(t *testing.T, store *journal.MemStore, n int) {
	t.Helper()
	entity := testutil.NewEntityID()
	for i := 1; i <= n; i++ {
		if _, err := store.Append(context.Background(), "orders",
			testutil.JSONRepr(t, entity, uint64(i), fmt.Sprintf(`{"n":%d}`, i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
}

func TestStreamServer_SSEDeliversInOrder(t *testing.T) {
	store := journal.NewMemStore()
	seedOrders(t, store, 5)
	ts := newTestServer(t, store)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/streams/orders", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", got)
	}

	envs := readSSEEvents(t, bufio.NewScanner(resp.Body), 5)
	for i, e := range envs {
		if e.Offset != uint64(i) {
			t.Fatalf("event %d offset %d, want %d", i, e.Offset, i)
		}
	}
}

func TestStreamServer_FromOffset(t *testing.T) {
	store := journal.NewMemStore()
	seedOrders(t, store, 5)
	ts := newTestServer(t, store)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/streams/orders?from=3", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	envs := readSSEEvents(t, bufio.NewScanner(resp.Body), 2)
	if envs[0].Offset != 3 || envs[1].Offset != 4 {
		t.Fatalf("got offsets %d,%d, want 3,4", envs[0].Offset, envs[1].Offset)
	}
}

func TestStreamServer_InvalidFromOffset(t *testing.T) {
	ts := newTestServer(t, journal.NewMemStore())

	resp, err := http.Get(ts.URL + "/streams/orders?from=banana")
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStreamServer_ProbesAndMetrics(t *testing.T) {
	ts := newTestServer(t, journal.NewMemStore())

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestStreamServer_LiveTail(t *testing.T) {
	store := journal.NewMemStore()
	seedOrders(t, store, 1)
	ts := newTestServer(t, store)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/streams/orders", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	first := readSSEEvents(t, scanner, 1)
	if first[0].Offset != 0 {
		t.Fatalf("first offset = %d, want 0", first[0].Offset)
	}

	// New writes after the connection was established are picked up live.
	seedOrders(t, store, 2)
	more := readSSEEvents(t, scanner, 2)
	if more[0].Offset != 1 || more[1].Offset != 2 {
		t.Fatalf("live offsets %d,%d, want 1,2", more[0].Offset, more[1].Offset)
	}
}
