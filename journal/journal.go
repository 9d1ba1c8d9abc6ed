// Package journal provides the append-only, tag-partitioned event journal
// that publishers poll. The read side is deliberately narrow: one query,
// "all entries tagged T at or after offset N", ordered by offset ascending.
package journal

import "context"

// Entry is one stored journal row: the ordering assigned on write plus the
// serialized representation. The payload is not guaranteed to decode.
type Entry struct {
	Ordering uint64
	Payload  []byte
}

// Journal is the query gateway publishers fetch from. Implementations must
// return entries ordered by Ordering ascending with Ordering >= fromOffset.
// A publisher issues at most one EventsByTag call at a time.
type Journal interface {
	EventsByTag(ctx context.Context, tag string, fromOffset uint64) ([]Entry, error)
}

// Appender is the write side, used by seeding tools and tests. Append stores
// the payload under the tag and returns the assigned ordering.
type Appender interface {
	Append(ctx context.Context, tag string, payload []byte) (uint64, error)
}
