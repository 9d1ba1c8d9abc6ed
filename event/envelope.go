// Package event defines the envelope delivered to stream consumers and the
// decoded journal representation it is built from.
package event

import "encoding/json"

// Repr is the decoded representation of one stored event: everything the
// journal serialized except the ordering, which the journal assigns on write.
type Repr struct {
	EntityID   string          `json:"entity_id"`
	SequenceNr uint64          `json:"sequence_nr"`
	Payload    json.RawMessage `json:"payload"`
}

// Envelope is one delivery-ready event. Offset is the journal ordering the
// event was stored under; it is unique and monotonically increasing within a
// tag. Envelopes are immutable once constructed.
type Envelope struct {
	Offset     uint64          `json:"offset"`
	EntityID   string          `json:"entity_id"`
	SequenceNr uint64          `json:"sequence_nr"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope attaches a journal ordering to a decoded representation.
func NewEnvelope(offset uint64, r Repr) Envelope {
	return Envelope{
		Offset:     offset,
		EntityID:   r.EntityID,
		SequenceNr: r.SequenceNr,
		Payload:    r.Payload,
	}
}
