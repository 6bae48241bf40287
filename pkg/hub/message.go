// Package hub fans session telemetry out to websocket dashboard
// clients using a channel-based broadcast hub.
package hub

import "encoding/json"

// Event names carried in the envelope.
const (
	// EventStatus carries a session snapshot, published every cycle.
	EventStatus = "status"
	// EventSuppressions carries the safety counter totals.
	EventSuppressions = "suppressions"
	// EventEStop announces an emergency stop latch or reset.
	EventEStop = "estop"
)

// Envelope is the wire format for every broadcast: an event name plus
// its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEvent encodes a payload into a broadcast-ready envelope.
func NewEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
