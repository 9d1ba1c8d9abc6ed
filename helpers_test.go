package tagstream_test

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
)

// syncBuffer is a goroutine-safe line buffer for sink output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	data := bytes.TrimSpace(b.buf.Bytes())
	if len(data) == 0 {
		return nil
	}
	raw := bytes.Split(data, []byte("\n"))
	out := make([][]byte, len(raw))
	for i, line := range raw {
		out[i] = append([]byte(nil), line...)
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
