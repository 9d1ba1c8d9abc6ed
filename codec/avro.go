package codec

import (
	"fmt"

	"github.com/hamba/avro/v2"

	"github.com/cotyar/tagstream/event"
)

// reprSchema is the Avro schema for one stored representation. The payload
// field stays opaque bytes; only the representation wrapper is typed.
const reprSchema = `{
	"type": "record",
	"name": "Repr",
	"namespace": "tagstream",
	"fields": [
		{"name": "entity_id", "type": "string"},
		{"name": "sequence_nr", "type": "long"},
		{"name": "payload", "type": "bytes"}
	]
}`

// avroRepr mirrors event.Repr with avro field tags. SequenceNr maps to Avro
// long; negative values are rejected after decode.
type avroRepr struct {
	EntityID   string `avro:"entity_id"`
	SequenceNr int64  `avro:"sequence_nr"`
	Payload    []byte `avro:"payload"`
}

// AvroDecoder decodes payloads stored as binary Avro representations.
type AvroDecoder struct {
	schema avro.Schema
}

// NewAvroDecoder parses the representation schema and returns a decoder.
func NewAvroDecoder() (*AvroDecoder, error) {
	schema, err := avro.Parse(reprSchema)
	if err != nil {
		return nil, fmt.Errorf("parse avro schema: %w", err)
	}
	return &AvroDecoder{schema: schema}, nil
}

func (*AvroDecoder) ContentType() string { return "application/avro" }

// Decode unmarshals the binary Avro payload.
func (d *AvroDecoder) Decode(payload []byte) (event.Repr, error) {
	var r avroRepr
	if err := avro.Unmarshal(d.schema, payload, &r); err != nil {
		return event.Repr{}, fmt.Errorf("unmarshal avro representation: %w", err)
	}
	if r.EntityID == "" {
		return event.Repr{}, fmt.Errorf("representation missing entity_id")
	}
	if r.SequenceNr < 0 {
		return event.Repr{}, fmt.Errorf("negative sequence_nr %d", r.SequenceNr)
	}
	return event.Repr{
		EntityID:   r.EntityID,
		SequenceNr: uint64(r.SequenceNr),
		Payload:    r.Payload,
	}, nil
}

// EncodeAvro is the write-side counterpart of AvroDecoder, used by seeding
// tools and tests.
func (d *AvroDecoder) EncodeAvro(r event.Repr) ([]byte, error) {
	b, err := avro.Marshal(d.schema, avroRepr{
		EntityID:   r.EntityID,
		SequenceNr: int64(r.SequenceNr),
		Payload:    r.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal avro representation: %w", err)
	}
	return b, nil
}
