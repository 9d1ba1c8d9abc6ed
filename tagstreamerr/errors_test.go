package tagstreamerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cotyar/tagstream/tagstreamerr"
)

func TestFetchError(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := &tagstreamerr.FetchError{Tag: "orders", FromOffset: 42, Err: cause}

	want := `fetch tag "orders" from offset 42: connection refused`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should match underlying cause via Unwrap")
	}
}

func TestDecodeError(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	err := &tagstreamerr.DecodeError{Tag: "orders", Ordering: 7, Err: cause}

	want := `decode entry 7 of tag "orders": unexpected EOF`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should match underlying cause via Unwrap")
	}
}

func TestErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("poll failed: %w",
		&tagstreamerr.DecodeError{Tag: "t", Ordering: 1, Err: errors.New("bad")})

	var decodeErr *tagstreamerr.DecodeError
	if !errors.As(wrapped, &decodeErr) {
		t.Fatal("errors.As should find DecodeError through wrapping")
	}
	if decodeErr.Ordering != 1 {
		t.Fatalf("ordering = %d, want 1", decodeErr.Ordering)
	}
}
