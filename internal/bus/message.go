package bus

import (
	"encoding/hex"
	"encoding/json"
	"time"
)

// RawPayload is an optional opaque payload on a Message: either bytes
// (serialized as lowercase hex without separators) or text.
type RawPayload struct {
	Bytes []byte
	Text  string
	IsSet bool
}

// BytesPayload constructs a byte-valued RawPayload.
func BytesPayload(b []byte) RawPayload { return RawPayload{Bytes: b, IsSet: true} }

// TextPayload constructs a text-valued RawPayload.
func TextPayload(s string) RawPayload { return RawPayload{Text: s, IsSet: true} }

func (p RawPayload) MarshalJSON() ([]byte, error) {
	if !p.IsSet {
		return []byte("null"), nil
	}
	if p.Bytes != nil {
		return json.Marshal(hex.EncodeToString(p.Bytes))
	}
	return json.Marshal(p.Text)
}

// Message is the immutable envelope every event travels in (§3).
// The bus wrapper stamps Source and Timestamp; callers never set them
// directly.
type Message struct {
	Source     string     `json:"source"`
	Timestamp  time.Time  `json:"timestamp"`
	RawPayload RawPayload `json:"raw_payload,omitempty"`
	Event      Event      `json:"event"`
}

// messageWire is the JSON-on-the-wire shape, matching §6's "event.kind"
// discriminant requirement.
type messageWire struct {
	Source     string          `json:"source"`
	Timestamp  time.Time       `json:"timestamp"`
	RawPayload RawPayload      `json:"raw_payload,omitempty"`
	Event      json.RawMessage `json:"event"`
}

// MarshalJSON flattens Event's Kind() into event.kind per §6.
func (m Message) MarshalJSON() ([]byte, error) {
	eventJSON, err := marshalEvent(m.Event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageWire{
		Source:     m.Source,
		Timestamp:  m.Timestamp,
		RawPayload: m.RawPayload,
		Event:      eventJSON,
	})
}

// UnmarshalJSON reconstructs the concrete Event variant from event.kind.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire messageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	event, err := unmarshalEvent(wire.Event)
	if err != nil {
		return err
	}
	m.Source = wire.Source
	m.Timestamp = wire.Timestamp
	m.RawPayload = wire.RawPayload
	m.Event = event
	return nil
}
