package publisher

import "github.com/cotyar/tagstream/event"

// buffer is the FIFO of fetched-but-undelivered envelopes. It is bounded by
// max and its contents are strictly increasing in offset, which the merge
// path guarantees by construction.
type buffer struct {
	max   int
	items []event.Envelope
}

func newBuffer(max int) *buffer {
	return &buffer{max: max}
}

func (b *buffer) len() int {
	return len(b.items)
}

// capacity returns how many more envelopes the buffer can hold.
func (b *buffer) capacity() int {
	return b.max - len(b.items)
}

// push appends e. Returns false when the buffer is full or e would break the
// strictly-increasing offset order; the envelope is not added in either case.
func (b *buffer) push(e event.Envelope) bool {
	if len(b.items) >= b.max {
		return false
	}
	if n := len(b.items); n > 0 && e.Offset <= b.items[n-1].Offset {
		return false
	}
	b.items = append(b.items, e)
	return true
}

// pop removes and returns the oldest envelope.
func (b *buffer) pop() (event.Envelope, bool) {
	if len(b.items) == 0 {
		return event.Envelope{}, false
	}
	e := b.items[0]
	b.items = b.items[1:]
	return e, true
}
