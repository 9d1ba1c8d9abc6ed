// Package publisher turns an append-only, tag-partitioned journal into a
// demand-driven stream of ordered envelopes for a single consumer. One
// goroutine owns all publisher state and serializes ticks, demand signals,
// cancellation, and fetch completions, so no locking is needed.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cotyar/tagstream/codec"
	"github.com/cotyar/tagstream/event"
	"github.com/cotyar/tagstream/journal"
	"github.com/cotyar/tagstream/metrics"
	"github.com/cotyar/tagstream/tagstreamerr"
)

const (
	defaultRefreshInterval = 1 * time.Second
	defaultMaxBufferSize   = 512
)

// Config carries the immutable construction parameters of a Publisher.
type Config struct {
	// Tag selects the journal partition to stream. Required.
	Tag string

	// FromOffset is the first journal ordering to query from.
	FromOffset uint64

	// RefreshInterval is the poll period. Defaults to 1s when zero.
	RefreshInterval time.Duration

	// MaxBufferSize bounds the number of fetched-but-undelivered envelopes.
	// Defaults to 512 when zero.
	MaxBufferSize int
}

func (c *Config) validate() error {
	if c.Tag == "" {
		return errors.New("publisher: tag must not be empty")
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	if c.MaxBufferSize <= 0 {
		c.MaxBufferSize = defaultMaxBufferSize
	}
	return nil
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger. If not set, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithTracer sets the OpenTelemetry tracer for per-poll producer spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Publisher) { p.tracer = t }
}

// fetchResult is the completion message of one asynchronous journal query.
type fetchResult struct {
	entries []journal.Entry
	err     error
}

// Publisher streams one tag from a journal to one consumer. Create with New,
// drive with Run, and consume via Request/Events/Cancel. All methods except
// Run are safe to call from any goroutine.
type Publisher struct {
	cfg     Config
	journal journal.Journal
	dec     codec.Decoder
	logger  *slog.Logger
	tracer  trace.Tracer

	requests   chan uint64
	cancelCh   chan struct{}
	cancelOnce sync.Once
	out        chan event.Envelope

	done chan struct{}
	err  error // terminal error; written once before done is closed

	startMu sync.Mutex
	started bool
}

// New creates a publisher for cfg.Tag. Call Run to start it.
func New(j journal.Journal, dec codec.Decoder, cfg Config, opts ...Option) (*Publisher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := &Publisher{
		cfg:      cfg,
		journal:  j,
		dec:      dec,
		requests: make(chan uint64, 16),
		cancelCh: make(chan struct{}),
		out:      make(chan event.Envelope),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "publisher", "tag", cfg.Tag)
	return p, nil
}

// Events returns the delivery channel. It is closed when the publisher
// stops; check Err afterwards to distinguish failure from completion.
func (p *Publisher) Events() <-chan event.Envelope {
	return p.out
}

// Request increases outstanding demand by n. A zero n is a no-op. Calling
// Request on a stopped publisher is a no-op.
func (p *Publisher) Request(n uint64) {
	if n == 0 {
		return
	}
	select {
	case p.requests <- n:
	case <-p.done:
	}
}

// Cancel terminates the stream. It is accepted in any state; an in-flight
// fetch that completes afterwards is discarded. Idempotent.
func (p *Publisher) Cancel() {
	p.cancelOnce.Do(func() { close(p.cancelCh) })
}

// Done is closed when the publisher has stopped.
func (p *Publisher) Done() <-chan struct{} {
	return p.done
}

// Err returns the terminal error once the publisher has stopped: nil after
// cancellation or external shutdown, non-nil after a fetch or decode failure.
// Returns nil while the publisher is still running.
func (p *Publisher) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Run executes the publisher loop until cancellation, context shutdown, or a
// terminal fetch/decode failure. It returns ctx.Err() on external shutdown,
// nil on consumer cancellation, and the terminal error on failure. Run must
// be called exactly once.
func (p *Publisher) Run(ctx context.Context) error {
	p.startMu.Lock()
	if p.started {
		p.startMu.Unlock()
		return tagstreamerr.ErrPublisherStopped
	}
	p.started = true
	p.startMu.Unlock()

	metrics.PublishersActive.Inc()
	defer metrics.PublishersActive.Dec()

	nextOffset := p.cfg.FromOffset
	buf := newBuffer(p.cfg.MaxBufferSize)
	var dem demand

	metrics.NextOffset.WithLabelValues(p.cfg.Tag).Set(float64(nextOffset))
	p.logger.Info("publisher started",
		"from_offset", nextOffset,
		"refresh_interval", p.cfg.RefreshInterval,
		"max_buffer_size", p.cfg.MaxBufferSize,
	)

	ticker := time.NewTicker(p.cfg.RefreshInterval)
	defer ticker.Stop()

	// fetchDone is non-nil exactly while a fetch is in flight. The channel is
	// buffered so a late completion never blocks the fetch goroutine.
	var fetchDone chan fetchResult
	// fetchLimit is the buffer capacity captured when the fetch was issued.
	var fetchLimit int

	startFetch := func() {
		fetchDone = make(chan fetchResult, 1)
		fetchLimit = buf.capacity()
		from := nextOffset
		ch := fetchDone
		metrics.PollsIssued.WithLabelValues(p.cfg.Tag).Inc()
		go func() {
			fctx := ctx
			var span trace.Span
			if p.tracer != nil {
				fctx, span = p.tracer.Start(ctx, "tagstream.poll",
					trace.WithSpanKind(trace.SpanKindProducer),
					trace.WithAttributes(
						attribute.String("tagstream.tag", p.cfg.Tag),
						attribute.Int64("tagstream.from_offset", int64(from)),
					),
				)
			}
			entries, err := p.journal.EventsByTag(fctx, p.cfg.Tag, from)
			if span != nil {
				span.End()
			}
			ch <- fetchResult{entries: entries, err: err}
		}()
	}

	// deliver flushes the buffer against outstanding demand. It returns a
	// non-nil stop cause when cancellation or shutdown arrives mid-send.
	deliver := func() error {
		for dem.outstanding() > 0 && buf.len() > 0 {
			e, _ := buf.pop()
			select {
			case p.out <- e:
				dem.dec()
				metrics.EventsDelivered.WithLabelValues(p.cfg.Tag).Inc()
			case <-p.cancelCh:
				return tagstreamerr.ErrCancelled
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		metrics.BufferLength.WithLabelValues(p.cfg.Tag).Set(float64(buf.len()))
		metrics.DemandOutstanding.WithLabelValues(p.cfg.Tag).Set(float64(dem.outstanding()))
		return nil
	}

	// shouldPoll reports whether undelivered demand exceeds what the buffer
	// can already satisfy.
	shouldPoll := func() bool {
		return dem.outstanding() > uint64(buf.len())
	}

	for {
		select {
		case <-ctx.Done():
			p.finish(nil)
			return ctx.Err()

		case <-p.cancelCh:
			p.logger.Info("publisher cancelled by consumer")
			p.finish(nil)
			return nil

		case n := <-p.requests:
			dem.add(n)
			metrics.DemandOutstanding.WithLabelValues(p.cfg.Tag).Set(float64(dem.outstanding()))
			if err := deliver(); err != nil {
				p.finish(nil)
				return p.runResult(ctx, err)
			}
			if fetchDone == nil && shouldPoll() {
				startFetch()
			}

		case <-ticker.C:
			if fetchDone != nil {
				continue // one fetch in flight at a time
			}
			if shouldPoll() {
				startFetch()
				continue
			}
			if err := deliver(); err != nil {
				p.finish(nil)
				return p.runResult(ctx, err)
			}

		case res := <-fetchDone:
			fetchDone = nil
			if res.err != nil {
				err := &tagstreamerr.FetchError{Tag: p.cfg.Tag, FromOffset: nextOffset, Err: res.err}
				p.failf(err)
				return err
			}

			merged, newOffset, err := p.merge(res.entries, nextOffset, fetchLimit, buf)
			if err != nil {
				p.failf(err)
				return err
			}
			if merged > 0 {
				metrics.EntriesFetched.WithLabelValues(p.cfg.Tag).Add(float64(merged))
				p.logger.Debug("poll merged entries", "count", merged, "next_offset", newOffset)
			}
			nextOffset = newOffset
			metrics.NextOffset.WithLabelValues(p.cfg.Tag).Set(float64(nextOffset))
			if err := deliver(); err != nil {
				p.finish(nil)
				return p.runResult(ctx, err)
			}
		}
	}
}

// merge decodes up to limit fetched entries at or past fromOffset and appends
// them to the buffer in offset order. It returns the number of merged
// envelopes and the advanced cursor. A single decode failure aborts the whole
// merge; nothing from the batch is kept.
func (p *Publisher) merge(entries []journal.Entry, fromOffset uint64, limit int, buf *buffer) (int, uint64, error) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Ordering < entries[j].Ordering
	})

	var pending []event.Envelope
	for _, entry := range entries {
		if entry.Ordering < fromOffset {
			continue // already consumed in a previous poll
		}
		if len(pending) >= limit {
			break // remaining entries picked up by a later poll
		}
		r, err := p.dec.Decode(entry.Payload)
		if err != nil {
			return 0, fromOffset, &tagstreamerr.DecodeError{Tag: p.cfg.Tag, Ordering: entry.Ordering, Err: err}
		}
		pending = append(pending, event.NewEnvelope(entry.Ordering, r))
	}

	newOffset := fromOffset
	for _, e := range pending {
		if !buf.push(e) {
			break
		}
		newOffset = e.Offset + 1
	}
	metrics.BufferLength.WithLabelValues(p.cfg.Tag).Set(float64(buf.len()))
	return len(pending), newOffset, nil
}

// failf records a terminal failure and closes the stream.
func (p *Publisher) failf(err error) {
	metrics.FetchErrors.WithLabelValues(p.cfg.Tag).Inc()
	p.logger.Error("publisher stopped on terminal failure", "error", err)
	p.finish(err)
}

// finish publishes the terminal state exactly once.
func (p *Publisher) finish(err error) {
	p.err = err
	close(p.out)
	close(p.done)
}

// runResult maps a mid-delivery stop cause to Run's return value: external
// shutdown propagates ctx.Err(), consumer cancellation is a clean nil.
func (p *Publisher) runResult(ctx context.Context, cause error) error {
	if errors.Is(cause, tagstreamerr.ErrCancelled) {
		p.logger.Info("publisher cancelled by consumer")
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("publisher stopped: %w", cause)
}
