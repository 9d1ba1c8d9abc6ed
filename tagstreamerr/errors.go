// Package tagstreamerr defines the error taxonomy shared across tagstream
// components. Typed errors carry enough context to be self-describing in logs
// without the caller re-wrapping them.
package tagstreamerr

import (
	"errors"
	"fmt"
)

// ErrPublisherStopped is returned when signalling a publisher that has
// already terminated.
var ErrPublisherStopped = errors.New("publisher: already stopped")

// ErrCancelled is the terminal state of a publisher stopped by consumer
// cancellation. It marks clean shutdown, not a failure.
var ErrCancelled = errors.New("publisher: cancelled by consumer")

// FetchError indicates that a journal query failed. The publisher treats it
// as terminal: the error is surfaced to the consumer and no further polls are
// issued.
type FetchError struct {
	Tag        string
	FromOffset uint64
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch tag %q from offset %d: %v", e.Tag, e.FromOffset, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DecodeError indicates that a fetched entry could not be decoded. A single
// decode failure fails the whole poll; the successfully decoded prefix is
// discarded rather than partially delivered.
type DecodeError struct {
	Tag      string
	Ordering uint64
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode entry %d of tag %q: %v", e.Ordering, e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
