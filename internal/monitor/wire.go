package monitor

import "encoding/json"

// marshalSection encodes a config section for a config_changed event,
// swallowing the (impossible for these concrete types) marshal error into
// an empty object rather than widening every call site's signature.
func marshalSection(section any) json.RawMessage {
	raw, err := json.Marshal(section)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}
