package journal

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Journal. Orderings are assigned from a single
// counter shared across all tags, so per-tag orderings are strictly
// increasing but not contiguous. Safe for concurrent use.
type MemStore struct {
	mu       sync.RWMutex
	next     uint64
	byTag    map[string][]Entry
	appendCh chan struct{} // closed and replaced on every Append, for waiters
}

// NewMemStore returns an empty in-memory journal. The first assigned
// ordering is 0.
func NewMemStore() *MemStore {
	return &MemStore{
		byTag:    make(map[string][]Entry),
		appendCh: make(chan struct{}),
	}
}

// Append stores payload under tag and returns the assigned ordering.
func (s *MemStore) Append(ctx context.Context, tag string, payload []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ordering := s.next
	s.next++

	// Copy: callers may reuse the payload slice.
	p := make([]byte, len(payload))
	copy(p, payload)
	s.byTag[tag] = append(s.byTag[tag], Entry{Ordering: ordering, Payload: p})

	close(s.appendCh)
	s.appendCh = make(chan struct{})
	return ordering, nil
}

// EventsByTag returns all entries for tag with Ordering >= fromOffset,
// ordered ascending.
func (s *MemStore) EventsByTag(ctx context.Context, tag string, fromOffset uint64) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.byTag[tag]
	// Entries are stored in ordering order; binary-search the start.
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Ordering >= fromOffset
	})
	if i == len(entries) {
		return nil, nil
	}
	out := make([]Entry, len(entries)-i)
	copy(out, entries[i:])
	return out, nil
}

// HighestOffset returns the highest ordering stored for tag, and false if the
// tag has no entries.
func (s *MemStore) HighestOffset(tag string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.byTag[tag]
	if len(entries) == 0 {
		return 0, false
	}
	return entries[len(entries)-1].Ordering, true
}

// WaitAppend returns a channel that is closed on the next Append. Used by
// tests to wait for writes without polling.
func (s *MemStore) WaitAppend() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appendCh
}
