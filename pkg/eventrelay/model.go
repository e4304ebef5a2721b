package eventrelay

import "time"

// Event is one durable domain event awaiting fan-out.
type Event struct {
	SubjectID string
	Name      string
	Payload   []byte
	CreatedAt time.Time
}

// Key identifies an event row. Domain events are keyed by
// (subject, event name), not by a surrogate id.
type Key struct {
	SubjectID string
	Name      string
}

func (e Event) Key() Key {
	return Key{SubjectID: e.SubjectID, Name: e.Name}
}
