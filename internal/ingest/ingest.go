package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/homedeck/homedeck-core/internal/bus"
	"github.com/homedeck/homedeck-core/internal/family"
	"github.com/homedeck/homedeck-core/internal/health"
	"github.com/homedeck/homedeck-core/internal/infrastructure/config"
	"github.com/homedeck/homedeck-core/internal/poll"
	"github.com/homedeck/homedeck-core/internal/store"
)

// Mirror is the optional telemetry sink; satisfied by the influxdb client.
type Mirror interface {
	WriteTemperature(room string, tempC float64)
	WriteMotion(room string, present bool)
	WritePlugPower(plug string, watts float64)
}

// Logger is the minimal logging interface used by the ingest service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Deps are the collaborators the ingest service wires together.
type Deps struct {
	Signals   *store.Signals
	History   *store.History
	Bus       *bus.Bus
	Monitor   *health.Monitor
	Scheduler *poll.Scheduler
	Clients   []family.Client
	Mirror    Mirror
	Polling   config.PollingConfig
	Logger    Logger
}

// Service owns the poll tasks and the transition detection between the
// previous stored value and each freshly fetched one. It is the only
// writer to the signal store.
type Service struct {
	signals   *store.Signals
	history   *store.History
	eventBus  *bus.Bus
	monitor   *health.Monitor
	scheduler *poll.Scheduler
	clients   []family.Client
	mirror    Mirror
	polling   config.PollingConfig
	logger    Logger

	subs []bus.Subscription
}

// New creates the ingest service. Call Start to register the poll tasks.
func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Service{
		signals:   deps.Signals,
		history:   deps.History,
		eventBus:  deps.Bus,
		monitor:   deps.Monitor,
		scheduler: deps.Scheduler,
		clients:   deps.Clients,
		mirror:    deps.Mirror,
		polling:   deps.Polling,
		logger:    logger,
	}
}

// Start registers one state poll per configured family plus the health
// sweep, and subscribes to connection flips for the activity log.
//
// State polls are gated on the family being online; the health sweep is
// never gated, so a recovered backend is picked up within one sweep and
// its state poll resumes on the next tick.
func (s *Service) Start() {
	for _, c := range s.clients {
		client := c
		fam := client.Family()
		s.scheduler.Register(
			"state:"+string(fam),
			s.period(fam),
			s.mode(fam),
			func(ctx context.Context) error {
				return s.pollState(ctx, client)
			},
		)
	}

	s.scheduler.Register("health-sweep",
		time.Duration(s.polling.Health)*time.Second,
		poll.ModeSkip,
		func(ctx context.Context) error {
			s.monitor.CheckAll(ctx)
			return nil
		},
	)

	s.subs = append(s.subs, s.eventBus.On(bus.TypeConnection, s.recordConnectionActivity))

	s.logger.Info("ingest started", "families", len(s.clients))
}

// Stop removes the bus subscriptions. Poll tasks are torn down by the
// scheduler's own Stop.
func (s *Service) Stop() {
	for _, sub := range s.subs {
		s.eventBus.Off(sub)
	}
	s.subs = nil
}

func (s *Service) period(f family.Family) time.Duration {
	seconds := 30
	switch f {
	case family.Hue:
		seconds = s.polling.Sensors
	case family.Sonos:
		seconds = s.polling.Speakers
	case family.Tapo:
		seconds = s.polling.Plugs
	case family.Stream:
		seconds = s.polling.Stream
	case family.Nest:
		seconds = s.polling.Thermostat
	}
	return time.Duration(seconds) * time.Second
}

// mode picks the overlap policy per family. Motion and plug polls detect
// edges against the previous stored value, so two overlapping runs could
// report the same edge twice; they skip instead.
func (s *Service) mode(f family.Family) poll.Mode {
	switch f {
	case family.Hue, family.Tapo:
		return poll.ModeSkip
	default:
		return poll.ModeOverlap
	}
}

// pollState runs one fetch for a family and ingests the result.
func (s *Service) pollState(ctx context.Context, client family.Client) error {
	fam := client.Family()
	if !s.monitor.IsOnline(fam) {
		s.logger.Debug("skipping state poll, family not online", "family", string(fam))
		return nil
	}

	readings, err := client.FetchState(ctx)
	if err != nil {
		// Values already in the store stay displayed as-is; the health
		// sweep decides when the family counts as offline.
		return err
	}

	for _, r := range readings {
		s.ingest(ctx, r)
	}
	return nil
}

// ingest writes one reading to the store, detects transitions against the
// previous value, and fans the update out to history, mirror, and bus.
func (s *Service) ingest(ctx context.Context, r family.Reading) {
	prev, prevErr := s.signals.Get(r.Key)
	sig := s.signals.Set(r.Key, r.Value, r.Room)

	s.eventBus.Emit(bus.SignalUpdated{
		Key:       sig.Key,
		Value:     sig.Value,
		Room:      sig.Room,
		Timestamp: sig.Timestamp,
	})

	switch {
	case strings.HasPrefix(r.Key, "temp:"):
		if temp, ok := asFloat(r.Value); ok {
			if err := s.history.AppendTemperature(ctx, r.Room, temp, sig.Timestamp); err != nil {
				s.logger.Warn("temperature history append failed", "room", r.Room, "error", err)
			}
			if s.mirror != nil {
				s.mirror.WriteTemperature(r.Room, temp)
			}
		}

	case strings.HasPrefix(r.Key, "motion:"):
		present, ok := r.Value.(bool)
		if !ok {
			return
		}
		if s.mirror != nil {
			s.mirror.WriteMotion(r.Room, present)
		}
		// Edge detection: only a stored false going true is an event. The
		// first ever observation is baseline, not a transition.
		if prevErr == nil && prev.Value == false && present {
			s.recordMotion(ctx, r.Room, sig.Timestamp)
		}

	case strings.HasSuffix(r.Key, ":on") && strings.HasPrefix(r.Key, "light:"):
		on, ok := r.Value.(bool)
		if !ok {
			return
		}
		if prevErr == nil && prev.Value != on {
			s.recordToggle(ctx, store.ActivityLight, r.Key, r.Room, on, sig.Timestamp)
		}

	case strings.HasSuffix(r.Key, ":power") && strings.HasPrefix(r.Key, "plug:"):
		if watts, ok := asFloat(r.Value); ok && s.mirror != nil {
			s.mirror.WritePlugPower(plugName(r.Key), watts)
		}
	}
}

func (s *Service) recordMotion(ctx context.Context, room string, at time.Time) {
	entry := store.ActivityEntry{
		Type:     store.ActivityMotion,
		Location: room,
		Time:     at,
	}
	if err := s.history.AppendActivity(ctx, entry); err != nil {
		s.logger.Warn("activity append failed", "room", room, "error", err)
	}

	s.eventBus.Emit(bus.Announcement{
		Text: "Motion in " + room,
		Room: room,
		At:   at,
	})
}

func (s *Service) recordToggle(ctx context.Context, entryType, key, room string, on bool, at time.Time) {
	detail := "off"
	if on {
		detail = "on"
	}
	location := room
	if location == "" {
		location = key
	}
	entry := store.ActivityEntry{
		Type:     entryType,
		Location: location,
		Detail:   detail,
		Time:     at,
	}
	if err := s.history.AppendActivity(ctx, entry); err != nil {
		s.logger.Warn("activity append failed", "key", key, "error", err)
	}
}

// recordConnectionActivity mirrors connection flips into the activity log.
func (s *Service) recordConnectionActivity(ev bus.Event) {
	change, ok := ev.(bus.ConnectionChanged)
	if !ok {
		return
	}

	detail := "offline"
	if change.Online {
		detail = "online"
	}
	if change.Detail != "" {
		detail += ": " + change.Detail
	}

	entry := store.ActivityEntry{
		Type:     store.ActivityConnection,
		Location: change.Family,
		Detail:   detail,
		Time:     change.At,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.AppendActivity(ctx, entry); err != nil {
		s.logger.Warn("activity append failed", "family", change.Family, "error", err)
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// plugName extracts the plug name from a "plug:<name>:power" key.
func plugName(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) < 2 {
		return key
	}
	return parts[1]
}
