package family

import (
	"context"
	"time"
)

// Family identifies one device family handled by the dashboard.
type Family string

// The device families.
const (
	Hue    Family = "hue"
	Sonos  Family = "sonos"
	Tapo   Family = "tapo"
	Stream Family = "stream"
	Nest   Family = "nest"
)

// Health is the result of a single liveness probe against a family's
// backend. Detail carries a short human-readable reason when offline, or
// extra context when online (e.g. "relay up, box powered off").
type Health struct {
	Online bool   `json:"online"`
	Detail string `json:"detail,omitempty"`
}

// Reading is one signal value produced by a state fetch, ready to be
// written to the store. Room is empty for signals not tied to a room.
type Reading struct {
	Key   string
	Value any
	Room  string
}

// Client is implemented by each per-family device client.
//
// FetchState performs the family's network calls and returns the complete
// signal set, or a *FetchError once local retries are exhausted. A single
// malformed entity inside an otherwise-good response is skipped with a
// warning, not an error.
//
// FetchHealth is a single cheap probe with a short timeout and no local
// retries; the connection monitor's periodic sweep is the retry loop.
type Client interface {
	Family() Family
	FetchState(ctx context.Context) ([]Reading, error)
	FetchHealth(ctx context.Context) Health
}

// Logger is the minimal logging interface used by family clients.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// NoopLogger returns a logger that discards everything. Used as the
// default when a client is constructed without one.
func NoopLogger() Logger { return noopLogger{} }

// HealthTimeout is the probe timeout shared by all families. Probes are
// deliberately tighter than state fetches so a dead backend is detected
// within one sweep.
const HealthTimeout = 2 * time.Second
