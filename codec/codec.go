// Package codec decodes serialized journal payloads into event
// representations. Decoding is a pure, possibly-failing function; a decode
// failure is fatal for the poll that fetched the entry.
package codec

import (
	"fmt"

	"github.com/cotyar/tagstream/event"
)

// Decoder decodes one stored payload into its event representation.
type Decoder interface {
	// Decode deserializes the payload. Returns an error for malformed or
	// incompatible payloads.
	Decode(payload []byte) (event.Repr, error)

	// ContentType returns the MIME type of payloads this decoder accepts.
	ContentType() string
}

// Type identifies a journal payload encoding.
type Type string

const (
	TypeJSON Type = "json"
	TypeAvro Type = "avro"
)

// ParseType parses a codec type string. Returns an error for unknown types.
func ParseType(s string) (Type, error) {
	switch s {
	case "json", "":
		return TypeJSON, nil
	case "avro":
		return TypeAvro, nil
	default:
		return "", fmt.Errorf("unknown codec type: %q (expected json or avro)", s)
	}
}

// New returns a decoder for the given codec type.
func New(t Type) (Decoder, error) {
	switch t {
	case TypeJSON:
		return JSONDecoder{}, nil
	case TypeAvro:
		return NewAvroDecoder()
	default:
		return nil, fmt.Errorf("unknown codec type: %q", t)
	}
}
