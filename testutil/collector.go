// Package testutil provides shared helpers for tagstream tests.
package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cotyar/tagstream/codec"
	"github.com/cotyar/tagstream/event"
)

// Stream is the minimal consumer-facing surface the collector drives.
type Stream interface {
	Events() <-chan event.Envelope
	Request(n uint64)
}

// ReceiveN requests n elements and waits for exactly n envelopes, failing the
// test on timeout or on a closed stream.
func ReceiveN(t *testing.T, s Stream, n uint64, timeout time.Duration) []event.Envelope {
	t.Helper()

	s.Request(n)
	deadline := time.After(timeout)
	out := make([]event.Envelope, 0, n)
	for uint64(len(out)) < n {
		select {
		case e, ok := <-s.Events():
			if !ok {
				t.Fatalf("stream closed after %d of %d envelopes", len(out), n)
			}
			out = append(out, e)
		case <-deadline:
			t.Fatalf("timed out after %d of %d envelopes", len(out), n)
		}
	}
	return out
}

// ExpectNone asserts that no envelope arrives within d. Useful for verifying
// demand conservation: with zero outstanding demand nothing may be delivered.
func ExpectNone(t *testing.T, s Stream, d time.Duration) {
	t.Helper()

	select {
	case e, ok := <-s.Events():
		if ok {
			t.Fatalf("unexpected envelope delivered: offset=%d", e.Offset)
		}
	case <-time.After(d):
	}
}

// WaitClosed waits for the stream's events channel to close, draining any
// remaining envelopes, and returns how many were drained.
func WaitClosed(t *testing.T, s Stream, timeout time.Duration) int {
	t.Helper()

	deadline := time.After(timeout)
	drained := 0
	for {
		select {
		case _, ok := <-s.Events():
			if !ok {
				return drained
			}
			drained++
		case <-deadline:
			t.Fatal("timed out waiting for stream to close")
			return drained
		}
	}
}

// JSONRepr encodes a representation with the JSON codec, failing the test on
// error.
func JSONRepr(t *testing.T, entityID string, seqNr uint64, payload string) []byte {
	t.Helper()

	b, err := codec.EncodeJSON(event.Repr{
		EntityID:   entityID,
		SequenceNr: seqNr,
		Payload:    json.RawMessage(payload),
	})
	if err != nil {
		t.Fatalf("encode representation: %v", err)
	}
	return b
}

// NewEntityID returns a fresh entity identifier.
func NewEntityID() string {
	return uuid.NewString()
}
