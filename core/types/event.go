package types

// Event is the flattened payload carried by every marketplace event.
// Attributes hold the already-rendered key/value pairs so downstream
// consumers (logs, indexers) never need the emitting package's types.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// New builds an Event with its own copy of the attribute map.
func New(eventType string, attributes map[string]string) *Event {
	copied := make(map[string]string, len(attributes))
	for key, value := range attributes {
		copied[key] = value
	}
	return &Event{Type: eventType, Attributes: copied}
}
