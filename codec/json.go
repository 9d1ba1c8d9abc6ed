package codec

import (
	"encoding/json"
	"fmt"

	"github.com/cotyar/tagstream/event"
)

// JSONDecoder decodes payloads stored as JSON representations.
type JSONDecoder struct{}

func (JSONDecoder) ContentType() string { return "application/json" }

// Decode unmarshals the payload. An entry without an entity_id is considered
// malformed.
func (JSONDecoder) Decode(payload []byte) (event.Repr, error) {
	var r event.Repr
	if err := json.Unmarshal(payload, &r); err != nil {
		return event.Repr{}, fmt.Errorf("unmarshal representation: %w", err)
	}
	if r.EntityID == "" {
		return event.Repr{}, fmt.Errorf("representation missing entity_id")
	}
	return r, nil
}

// EncodeJSON is the write-side counterpart of JSONDecoder, used by seeding
// tools and tests.
func EncodeJSON(r event.Repr) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal representation: %w", err)
	}
	return b, nil
}
