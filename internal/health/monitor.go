package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/homedeck/homedeck-core/internal/bus"
	"github.com/homedeck/homedeck-core/internal/family"
)

// State of a family as known to the monitor.
type State string

// Connection states. Unknown is the initial state before the first sweep
// completes; it never recurs for a family after that.
const (
	StateUnknown State = "unknown"
	StateOnline  State = "online"
	StateOffline State = "offline"
)

// Status is a family's last-known connection state.
type Status struct {
	State     State     `json:"state"`
	Detail    string    `json:"detail,omitempty"`
	Since     time.Time `json:"since"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker is the probe surface the monitor needs from a family client.
type Checker interface {
	Family() family.Family
	FetchHealth(ctx context.Context) family.Health
}

// Logger is the minimal logging interface used by the monitor.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Monitor owns online/offline state for every registered family.
//
// Probes are fanned out concurrently by CheckAll. State transitions are
// edge-triggered: exactly one connection event per flip, nothing on a
// steady state, and no timeout-based reversion. A family stays in its
// last-known state until a probe says otherwise.
type Monitor struct {
	checkers []Checker
	eventBus *bus.Bus
	logger   Logger

	mu     sync.RWMutex
	status map[family.Family]Status

	// sweepMu guards against overlapping sweeps. A CheckAll that finds a
	// sweep in flight returns the last-known map instead of probing again.
	sweepMu sync.Mutex

	// now is swapped in tests.
	now func() time.Time
}

// NewMonitor creates a monitor over the given checkers. Every family
// starts unknown.
func NewMonitor(checkers []Checker, eventBus *bus.Bus, logger Logger) *Monitor {
	if logger == nil {
		logger = noopLogger{}
	}

	status := make(map[family.Family]Status, len(checkers))
	for _, c := range checkers {
		status[c.Family()] = Status{State: StateUnknown}
	}

	return &Monitor{
		checkers: checkers,
		eventBus: eventBus,
		logger:   logger,
		status:   status,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CheckAll probes every family concurrently and applies the results.
//
// If a sweep is already in flight the call does not start a second one;
// it returns the last-known snapshot immediately. Probes never return
// errors (an unreachable backend is an offline result, not a failure),
// so the sweep itself cannot fail.
func (m *Monitor) CheckAll(ctx context.Context) map[family.Family]Status {
	if !m.sweepMu.TryLock() {
		return m.Snapshot()
	}
	defer m.sweepMu.Unlock()

	results := make([]family.Health, len(m.checkers))
	g, ctx := errgroup.WithContext(ctx)
	for i, c := range m.checkers {
		g.Go(func() error {
			results[i] = c.FetchHealth(ctx)
			return nil
		})
	}
	g.Wait()

	for i, c := range m.checkers {
		m.apply(c.Family(), results[i])
	}
	return m.Snapshot()
}

// apply records one probe result and emits a connection event if the
// online/offline state flipped.
func (m *Monitor) apply(f family.Family, h family.Health) {
	newState := StateOffline
	if h.Online {
		newState = StateOnline
	}
	now := m.now()

	m.mu.Lock()
	prev := m.status[f]
	flipped := prev.State != newState

	next := Status{State: newState, Detail: h.Detail, Since: prev.Since, CheckedAt: now}
	if flipped {
		next.Since = now
	}
	m.status[f] = next
	m.mu.Unlock()

	if !flipped {
		return
	}

	m.logger.Info("family connection changed",
		"family", string(f), "state", string(newState), "detail", h.Detail)

	if m.eventBus != nil {
		m.eventBus.Emit(bus.ConnectionChanged{
			Family: string(f),
			Online: h.Online,
			Detail: h.Detail,
			At:     now,
		})
	}
}

// IsOnline reports whether a family's last-known state is online.
// Unknown counts as not online.
func (m *Monitor) IsOnline(f family.Family) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status[f].State == StateOnline
}

// Snapshot returns a copy of the last-known state map.
func (m *Monitor) Snapshot() map[family.Family]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[family.Family]Status, len(m.status))
	for f, s := range m.status {
		out[f] = s
	}
	return out
}
