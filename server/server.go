// Package server exposes tag streams over HTTP. Every SSE connection gets its
// own publisher, so each client is an independent single subscriber with its
// own cursor and demand window.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cotyar/tagstream/codec"
	"github.com/cotyar/tagstream/event"
	"github.com/cotyar/tagstream/health"
	"github.com/cotyar/tagstream/journal"
	"github.com/cotyar/tagstream/metrics"
	"github.com/cotyar/tagstream/publisher"
)

const (
	defaultWindow    = 64
	defaultHeartbeat = 15 * time.Second
)

// StreamServer serves per-tag SSE streams plus health and metrics endpoints.
type StreamServer struct {
	journal         journal.Journal
	dec             codec.Decoder
	refreshInterval time.Duration
	maxBufferSize   int
	window          uint64
	heartbeat       time.Duration
	logger          *slog.Logger
}

// ServerOption configures a StreamServer.
type ServerOption func(*StreamServer)

// WithWindow sets how many envelopes are requested ahead of what the client
// has consumed (default 64).
func WithWindow(n uint64) ServerOption {
	return func(s *StreamServer) {
		if n > 0 {
			s.window = n
		}
	}
}

// WithHeartbeat sets the keep-alive comment interval for idle SSE
// connections (default 15s).
func WithHeartbeat(d time.Duration) ServerOption {
	return func(s *StreamServer) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// WithRefreshInterval sets the poll period of per-connection publishers.
func WithRefreshInterval(d time.Duration) ServerOption {
	return func(s *StreamServer) { s.refreshInterval = d }
}

// WithMaxBufferSize sets the buffer bound of per-connection publishers.
func WithMaxBufferSize(n int) ServerOption {
	return func(s *StreamServer) { s.maxBufferSize = n }
}

// NewStreamServer creates a StreamServer reading from j with the given
// decoder.
func NewStreamServer(j journal.Journal, dec codec.Decoder, logger *slog.Logger, opts ...ServerOption) *StreamServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &StreamServer{
		journal:   j,
		dec:       dec,
		window:    defaultWindow,
		heartbeat: defaultHeartbeat,
		logger:    logger.With("component", "server"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the HTTP routes:
//
//	GET /healthz              — liveness
//	GET /readyz               — readiness
//	GET /metrics              — prometheus metrics
//	GET /streams/{tag}        — SSE stream of envelopes for the tag
//	                            (?from=N selects the starting offset)
func (s *StreamServer) Handler(checker *health.Checker, readiness *health.ReadinessChecker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if checker != nil {
		r.Get("/healthz", checker.ServeHTTP)
	}
	if readiness != nil {
		r.Get("/readyz", readiness.ServeHTTP)
	}
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/streams/{tag}", s.serveStream)

	return r
}

// NewHTTPServer wraps the handler in an http.Server bound to addr.
// WriteTimeout stays unset: SSE connections are long-lived.
func (s *StreamServer) NewHTTPServer(addr string, checker *health.Checker, readiness *health.ReadinessChecker) *http.Server {
	return &http.Server{
		Addr:        addr,
		Handler:     s.Handler(checker, readiness),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 2 * defaultHeartbeat,
	}
}

// serveStream handles one SSE connection: it starts a dedicated publisher at
// the requested offset and forwards envelopes as SSE events, requesting one
// more element per event written so outstanding demand never exceeds the
// window.
func (s *StreamServer) serveStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	tag := chi.URLParam(r, "tag")
	from, err := parseFromOffset(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pub, err := publisher.New(s.journal, s.dec, publisher.Config{
		Tag:             tag,
		FromOffset:      from,
		RefreshInterval: s.refreshInterval,
		MaxBufferSize:   s.maxBufferSize,
	}, publisher.WithLogger(s.logger))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = pub.Run(ctx)
	}()
	defer func() {
		pub.Cancel()
		<-runDone
	}()

	metrics.SSEClientsActive.Inc()
	defer metrics.SSEClientsActive.Dec()
	s.logger.Info("stream client connected", "tag", tag, "from_offset", from)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	pub.Request(s.window)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("stream client disconnected", "tag", tag)
			return

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case e, ok := <-pub.Events():
			if !ok {
				if err := pub.Err(); err != nil {
					// Terminal stream failure: report it to the client and
					// close the connection.
					fmt.Fprintf(w, "event: error\ndata: %s\n\n", err)
					flusher.Flush()
				}
				return
			}
			if err := writeSSE(w, e); err != nil {
				return
			}
			flusher.Flush()
			pub.Request(1)
		}
	}
}

func writeSSE(w http.ResponseWriter, e event.Envelope) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal envelope %d: %w", e.Offset, err)
	}
	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", e.Offset, data)
	return err
}

func parseFromOffset(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	from, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid from offset %q", s)
	}
	return from, nil
}
