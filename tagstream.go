// Package tagstream streams an append-only, tag-partitioned event journal to
// demand-driven consumers. Each tag gets its own polling publisher; sinks
// pull envelopes at their own pace.
package tagstream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cotyar/tagstream/codec"
	"github.com/cotyar/tagstream/health"
	"github.com/cotyar/tagstream/internal/safegoroutine"
	"github.com/cotyar/tagstream/journal"
	"github.com/cotyar/tagstream/publisher"
	"github.com/cotyar/tagstream/sink"
)

// stream pairs one publisher configuration with the sink that consumes it.
type stream struct {
	cfg publisher.Config
	s   sink.Sink
}

// Runner orchestrates one publisher per configured tag and its sink. It is
// the primary entry point for using tagstream as a library.
type Runner struct {
	journal         journal.Journal
	dec             codec.Decoder
	streams         []stream
	health          *health.Checker
	logger          *slog.Logger
	refreshInterval time.Duration
	maxBufferSize   int
}

// Option configures a Runner.
type Option func(*Runner)

// WithStream adds a tag stream consumed by the given sink, starting at
// fromOffset.
func WithStream(tag string, fromOffset uint64, s sink.Sink) Option {
	return func(r *Runner) {
		r.streams = append(r.streams, stream{
			cfg: publisher.Config{Tag: tag, FromOffset: fromOffset},
			s:   s,
		})
	}
}

// WithRefreshInterval sets the poll period for all publishers.
func WithRefreshInterval(d time.Duration) Option {
	return func(r *Runner) { r.refreshInterval = d }
}

// WithMaxBufferSize sets the per-publisher buffer bound.
func WithMaxBufferSize(n int) Option {
	return func(r *Runner) { r.maxBufferSize = n }
}

// WithLogger sets the logger. If not set, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithHealthChecker sets the health checker. If not set, a new checker is
// created with one component per stream.
func WithHealthChecker(c *health.Checker) Option {
	return func(r *Runner) { r.health = c }
}

// NewRunner creates a Runner reading from j with the given decoder.
// Call Run to start it.
func NewRunner(j journal.Journal, dec codec.Decoder, opts ...Option) *Runner {
	r := &Runner{
		journal: j,
		dec:     dec,
	}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.health == nil {
		r.health = health.NewChecker()
		for _, st := range r.streams {
			r.health.Register("stream:" + st.cfg.Tag)
		}
	}
	return r
}

// Health returns the runner's health checker.
func (r *Runner) Health() *health.Checker {
	return r.health
}

// Run starts every publisher/sink pair and blocks until ctx is cancelled or a
// stream fails. Context cancellation is a clean shutdown and returns nil.
func (r *Runner) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	for _, st := range r.streams {
		cfg := st.cfg
		cfg.RefreshInterval = r.refreshInterval
		cfg.MaxBufferSize = r.maxBufferSize

		pub, err := publisher.New(r.journal, r.dec, cfg, publisher.WithLogger(r.logger))
		if err != nil {
			return fmt.Errorf("create publisher for tag %q: %w", cfg.Tag, err)
		}

		component := "stream:" + cfg.Tag
		snk := st.s

		safegoroutine.Go(g, r.logger, component, func() error {
			r.health.SetStatus(component, health.StatusUp)
			defer r.health.SetStatus(component, health.StatusDown)
			return pub.Run(gCtx)
		})
		safegoroutine.Go(g, r.logger, "sink:"+snk.Name(), func() error {
			r.logger.Info("sink started", "sink", snk.Name(), "tag", cfg.Tag)
			return snk.Start(gCtx, pub)
		})
	}

	err := g.Wait()

	// context.Canceled is expected on clean shutdown.
	if err != nil && gCtx.Err() != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
