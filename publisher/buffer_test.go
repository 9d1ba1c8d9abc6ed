package publisher

import (
	"testing"

	"github.com/cotyar/tagstream/event"
)

func env(offset uint64) event.Envelope {
	return event.Envelope{Offset: offset, EntityID: "e", SequenceNr: offset + 1}
}

func TestBuffer_FIFO(t *testing.T) {
	b := newBuffer(3)

	for _, o := range []uint64{2, 5, 9} {
		if !b.push(env(o)) {
			t.Fatalf("push offset %d rejected", o)
		}
	}
	if b.len() != 3 || b.capacity() != 0 {
		t.Fatalf("len=%d capacity=%d, want 3/0", b.len(), b.capacity())
	}

	for _, want := range []uint64{2, 5, 9} {
		e, ok := b.pop()
		if !ok || e.Offset != want {
			t.Fatalf("pop = (%d, %v), want (%d, true)", e.Offset, ok, want)
		}
	}
	if _, ok := b.pop(); ok {
		t.Fatal("pop on empty buffer succeeded")
	}
}

func TestBuffer_RejectsOverflow(t *testing.T) {
	b := newBuffer(2)
	b.push(env(0))
	b.push(env(1))

	if b.push(env(2)) {
		t.Fatal("push beyond max succeeded")
	}
	if b.len() != 2 {
		t.Fatalf("len = %d, want 2", b.len())
	}
}

func TestBuffer_RejectsNonIncreasingOffsets(t *testing.T) {
	b := newBuffer(10)
	b.push(env(5))

	tests := []struct {
		name   string
		offset uint64
	}{
		{"equal offset", 5},
		{"lower offset", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if b.push(env(tt.offset)) {
				t.Fatalf("push offset %d after 5 succeeded", tt.offset)
			}
		})
	}

	if !b.push(env(6)) {
		t.Fatal("push offset 6 after 5 rejected")
	}
}

func TestDemand_AddDec(t *testing.T) {
	var d demand

	d.add(3)
	if d.outstanding() != 3 {
		t.Fatalf("outstanding = %d, want 3", d.outstanding())
	}
	d.dec()
	d.dec()
	if d.outstanding() != 1 {
		t.Fatalf("outstanding = %d, want 1", d.outstanding())
	}
	d.dec()
	d.dec() // underflow guard
	if d.outstanding() != 0 {
		t.Fatalf("outstanding = %d, want 0", d.outstanding())
	}
}

func TestDemand_SaturatesInsteadOfWrapping(t *testing.T) {
	var d demand

	d.add(^uint64(0))
	d.add(10)
	if d.outstanding() != ^uint64(0) {
		t.Fatalf("outstanding = %d, want max uint64", d.outstanding())
	}
	d.dec()
	if d.outstanding() != ^uint64(0)-1 {
		t.Fatalf("outstanding = %d, want max-1", d.outstanding())
	}
}
