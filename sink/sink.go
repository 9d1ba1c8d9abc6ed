// Package sink defines the downstream consumer contract. A sink drives the
// stream at its own pace: it signals demand, receives envelopes, and may
// cancel at any time.
package sink

import (
	"context"

	"github.com/cotyar/tagstream/event"
)

// Stream is the consumer-facing handle of a running publisher.
type Stream interface {
	// Events returns the delivery channel. Closed when the stream ends.
	Events() <-chan event.Envelope

	// Request increases outstanding demand by n.
	Request(n uint64)

	// Cancel terminates the stream.
	Cancel()

	// Err returns the terminal error once the stream has ended, nil for a
	// clean end.
	Err() error
}

// Sink consumes one stream. Start blocks until the stream ends or ctx is
// cancelled and must propagate the stream's terminal error.
type Sink interface {
	Start(ctx context.Context, stream Stream) error
	Name() string
}
