package store

import "time"

// Signal is a single named current value tracked by the dashboard:
// a room temperature, a motion flag, a light's on/off state.
//
// Keys are namespaced by convention, e.g. "temp:Lounge", "motion:Hall",
// "light:23:on", "plug:heater:on", "stream:app".
type Signal struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	Room      string    `json:"room,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TemperaturePoint is one sample in a room's bounded temperature series.
type TemperaturePoint struct {
	Time time.Time `json:"time"`
	Temp float64   `json:"temp"`
}

// ActivityEntry is one row in the bounded activity/motion log.
type ActivityEntry struct {
	Type     string    `json:"type"`
	Location string    `json:"location"`
	Detail   string    `json:"detail,omitempty"`
	Time     time.Time `json:"time"`
}

// Activity entry types.
const (
	ActivityMotion     = "motion"
	ActivityConnection = "connection"
	ActivityLight      = "light"
)

// Position is a persisted draggable UI element location.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}
