package publisher

import "math"

// demand tracks how many elements the consumer has requested but not yet
// received. It only ever moves by explicit increments and per-delivery
// decrements; it is never set directly.
type demand struct {
	n uint64
}

// add increases outstanding demand by n, saturating at the maximum uint64
// value. Saturated demand behaves as effectively unbounded.
func (d *demand) add(n uint64) {
	if d.n > math.MaxUint64-n {
		d.n = math.MaxUint64
		return
	}
	d.n += n
}

// dec records one successful delivery.
func (d *demand) dec() {
	if d.n > 0 {
		d.n--
	}
}

// outstanding returns the requested-but-undelivered count.
func (d *demand) outstanding() uint64 {
	return d.n
}
