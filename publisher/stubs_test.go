package publisher_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cotyar/tagstream/journal"
)

// countingJournal counts EventsByTag calls and delegates to an inner journal.
type countingJournal struct {
	inner journal.Journal
	n     atomic.Int64
}

func (c *countingJournal) EventsByTag(ctx context.Context, tag string, fromOffset uint64) ([]journal.Entry, error) {
	c.n.Add(1)
	return c.inner.EventsByTag(ctx, tag, fromOffset)
}

func (c *countingJournal) count() int64 {
	return c.n.Load()
}

// failingJournal fails every fetch with a fixed error.
type failingJournal struct {
	err error
}

func (f failingJournal) EventsByTag(context.Context, string, uint64) ([]journal.Entry, error) {
	return nil, f.err
}

// blockingJournal parks the first fetch until release is called, then
// returns no entries. Later fetches return immediately.
type blockingJournal struct {
	started   chan struct{}
	releaseCh chan struct{}
	first     atomic.Bool
}

func newBlockingJournal() *blockingJournal {
	return &blockingJournal{
		started:   make(chan struct{}),
		releaseCh: make(chan struct{}),
	}
}

func (b *blockingJournal) EventsByTag(ctx context.Context, tag string, fromOffset uint64) ([]journal.Entry, error) {
	if b.first.CompareAndSwap(false, true) {
		close(b.started)
		select {
		case <-b.releaseCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

func (b *blockingJournal) waitFetch(t *testing.T) {
	t.Helper()
	select {
	case <-b.started:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch was never issued")
	}
}

func (b *blockingJournal) release() {
	close(b.releaseCh)
}

// reversingJournal returns its inner journal's entries in descending order,
// simulating a storage engine with no ordering guarantee.
type reversingJournal struct {
	inner journal.Journal
}

func (r reversingJournal) EventsByTag(ctx context.Context, tag string, fromOffset uint64) ([]journal.Entry, error) {
	entries, err := r.inner.EventsByTag(ctx, tag, fromOffset)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
