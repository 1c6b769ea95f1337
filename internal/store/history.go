package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// HistoryRepository persists bounded history so it survives restarts.
// The SQLite implementation lives in this package; tests substitute an
// in-memory fake.
type HistoryRepository interface {
	InsertTemperature(ctx context.Context, room string, p TemperaturePoint) error
	PruneTemperature(ctx context.Context, cutoff time.Time) (int64, error)
	TemperatureSince(ctx context.Context, room string, since time.Time) ([]TemperaturePoint, error)

	InsertActivity(ctx context.Context, e ActivityEntry) error
	PruneActivity(ctx context.Context, cutoff time.Time) (int64, error)
	ActivitySince(ctx context.Context, since time.Time) ([]ActivityEntry, error)
}

// Logger is the minimal logging interface used by this package.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// History keeps rolling in-memory series with write-through persistence.
//
// Retention is enforced on every append: points older than the window are
// dropped from memory and pruned from the repository before the new point
// is stored, so the series never holds more than one window of data.
type History struct {
	repo   HistoryRepository
	logger Logger

	tempWindow time.Duration
	actWindow  time.Duration

	// now is swapped in tests to pin the retention cutoff.
	now func() time.Time

	mu       sync.Mutex
	temps    map[string][]TemperaturePoint
	activity []ActivityEntry
}

// HistoryConfig bounds the rolling windows.
type HistoryConfig struct {
	TemperatureWindow time.Duration
	ActivityWindow    time.Duration
}

// NewHistory creates a history store over the given repository.
func NewHistory(repo HistoryRepository, cfg HistoryConfig, logger Logger) *History {
	if logger == nil {
		logger = noopLogger{}
	}
	return &History{
		repo:       repo,
		logger:     logger,
		tempWindow: cfg.TemperatureWindow,
		actWindow:  cfg.ActivityWindow,
		now:        func() time.Time { return time.Now().UTC() },
		temps:      make(map[string][]TemperaturePoint),
	}
}

// Load restores in-window history from the repository. Called once at
// startup, before any appends.
func (h *History) Load(ctx context.Context, rooms []string) error {
	now := h.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range rooms {
		points, err := h.repo.TemperatureSince(ctx, room, now.Add(-h.tempWindow))
		if err != nil {
			return fmt.Errorf("loading temperature history for %s: %w", room, err)
		}
		if len(points) > 0 {
			h.temps[room] = points
		}
	}

	entries, err := h.repo.ActivitySince(ctx, now.Add(-h.actWindow))
	if err != nil {
		return fmt.Errorf("loading activity history: %w", err)
	}
	h.activity = entries

	return nil
}

// AppendTemperature records a temperature sample for a room.
//
// The in-memory series is filtered to the retention window first, then the
// point is persisted and appended. A point already older than the window is
// persisted but dropped from memory immediately.
func (h *History) AppendTemperature(ctx context.Context, room string, temp float64, at time.Time) error {
	cutoff := h.now().Add(-h.tempWindow)
	point := TemperaturePoint{Time: at, Temp: temp}

	if _, err := h.repo.PruneTemperature(ctx, cutoff); err != nil {
		h.logger.Warn("temperature prune failed", "error", err)
	}
	if err := h.repo.InsertTemperature(ctx, room, point); err != nil {
		return fmt.Errorf("persisting temperature point: %w", err)
	}

	h.mu.Lock()
	series := filterTemps(h.temps[room], cutoff)
	if at.After(cutoff) {
		series = append(series, point)
	}
	h.temps[room] = series
	h.mu.Unlock()

	return nil
}

// TemperatureSeries returns the in-window samples for a room, oldest first.
// Points that aged out since the last append are filtered on read.
func (h *History) TemperatureSeries(room string) []TemperaturePoint {
	cutoff := h.now().Add(-h.tempWindow)

	h.mu.Lock()
	defer h.mu.Unlock()

	series := filterTemps(h.temps[room], cutoff)
	h.temps[room] = series

	out := make([]TemperaturePoint, len(series))
	copy(out, series)
	return out
}

// AppendActivity records an activity entry, enforcing the activity window
// the same way AppendTemperature enforces the temperature window.
func (h *History) AppendActivity(ctx context.Context, entry ActivityEntry) error {
	cutoff := h.now().Add(-h.actWindow)

	if _, err := h.repo.PruneActivity(ctx, cutoff); err != nil {
		h.logger.Warn("activity prune failed", "error", err)
	}
	if err := h.repo.InsertActivity(ctx, entry); err != nil {
		return fmt.Errorf("persisting activity entry: %w", err)
	}

	h.mu.Lock()
	log := filterActivity(h.activity, cutoff)
	if entry.Time.After(cutoff) {
		log = append(log, entry)
	}
	h.activity = log
	h.mu.Unlock()

	return nil
}

// ActivityLog returns the in-window activity entries, oldest first.
func (h *History) ActivityLog() []ActivityEntry {
	cutoff := h.now().Add(-h.actWindow)

	h.mu.Lock()
	defer h.mu.Unlock()

	log := filterActivity(h.activity, cutoff)
	h.activity = log

	out := make([]ActivityEntry, len(log))
	copy(out, log)
	return out
}

func filterTemps(points []TemperaturePoint, cutoff time.Time) []TemperaturePoint {
	// Full scan: appends are usually in time order but a backdated point
	// may land behind a newer one, so position alone proves nothing.
	var kept []TemperaturePoint
	for _, p := range points {
		if p.Time.After(cutoff) {
			kept = append(kept, p)
		}
	}
	return kept
}

func filterActivity(entries []ActivityEntry, cutoff time.Time) []ActivityEntry {
	var kept []ActivityEntry
	for _, e := range entries {
		if e.Time.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}
