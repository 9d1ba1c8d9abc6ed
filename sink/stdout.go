package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const defaultWindow = 64

// Stdout writes envelopes as JSON-lines to an io.Writer. It is the simplest
// sink, useful for debugging and unix piping
// (e.g. tagstream tail -t orders | jq .payload).
type Stdout struct {
	w      io.Writer
	window uint64
	logger *slog.Logger
}

// NewStdout creates a stdout sink that writes JSON-lines to w. If w is nil it
// defaults to os.Stdout. window is how many envelopes are requested ahead of
// consumption; it defaults to 64 when zero.
func NewStdout(w io.Writer, window uint64, logger *slog.Logger) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	if window == 0 {
		window = defaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stdout{
		w:      w,
		window: window,
		logger: logger.With("sink", "stdout"),
	}
}

// Start requests an initial window, then re-requests one element per
// envelope written, keeping outstanding demand constant. It returns the
// stream's terminal error when the stream ends.
func (s *Stdout) Start(ctx context.Context, stream Stream) error {
	s.logger.Info("stdout sink started", "window", s.window)

	enc := json.NewEncoder(s.w)
	stream.Request(s.window)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stdout sink stopping", "reason", "context cancelled")
			stream.Cancel()
			return ctx.Err()

		case e, ok := <-stream.Events():
			if !ok {
				if err := stream.Err(); err != nil {
					return fmt.Errorf("stdout sink: stream failed: %w", err)
				}
				s.logger.Info("stdout sink stopping", "reason", "stream ended")
				return nil
			}
			if err := enc.Encode(e); err != nil {
				stream.Cancel()
				return fmt.Errorf("stdout sink: encode envelope %d: %w", e.Offset, err)
			}
			stream.Request(1)
		}
	}
}

// Name returns the sink name.
func (s *Stdout) Name() string {
	return "stdout"
}
