package bus

import "time"

// Type identifies an event kind on the bus.
type Type string

// Event types published by the core.
const (
	// TypeSignalUpdated fires after a signal value is written to the store.
	TypeSignalUpdated Type = "signal:updated"

	// TypeConnection fires on a family online/offline flip (edge-triggered,
	// published only by the connection monitor).
	TypeConnection Type = "connection"

	// TypeAnnouncement requests a user-facing announcement (spoken or
	// displayed by an external consumer).
	TypeAnnouncement Type = "announcement"
)

// Event is implemented by all bus payloads.
type Event interface {
	EventType() Type
}

// SignalUpdated carries a freshly written signal value.
type SignalUpdated struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	Room      string    `json:"room,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventType implements Event.
func (SignalUpdated) EventType() Type { return TypeSignalUpdated }

// ConnectionChanged carries a device-family reachability transition.
type ConnectionChanged struct {
	Family string    `json:"family"`
	Online bool      `json:"online"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// EventType implements Event.
func (ConnectionChanged) EventType() Type { return TypeConnection }

// Announcement carries a best-effort user-facing message.
type Announcement struct {
	Text string    `json:"text"`
	Room string    `json:"room,omitempty"`
	At   time.Time `json:"at"`
}

// EventType implements Event.
func (Announcement) EventType() Type { return TypeAnnouncement }
