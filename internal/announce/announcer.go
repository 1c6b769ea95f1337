package announce

import (
	"context"
	"encoding/json"
	"time"

	"github.com/homedeck/homedeck-core/internal/bus"
	"github.com/homedeck/homedeck-core/internal/infrastructure/mqtt"
)

const sayTimeout = 5 * time.Second

// Broker is the publish surface the announcer needs from the MQTT client.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
	IsConnected() bool
}

// Speaker plays short TTS clips; satisfied by the sonos client. Used as
// the fallback channel when no broker is configured.
type Speaker interface {
	Say(ctx context.Context, unit, text string) error
}

// Logger is the minimal logging interface used by the announcer.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Announcer relays bus events to the outside world: family connection
// flips become retained health topics, announcement events become MQTT
// messages or a spoken TTS clip.
//
// Delivery is best-effort. A failed publish is logged and dropped; there
// is no queueing or replay for consumers that were offline.
type Announcer struct {
	broker      Broker
	speaker     Speaker
	defaultUnit string
	logger      Logger

	subs []bus.Subscription
}

// New creates an announcer. Either broker or speaker may be nil; with
// both nil the announcer only logs.
func New(broker Broker, speaker Speaker, defaultUnit string, logger Logger) *Announcer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Announcer{
		broker:      broker,
		speaker:     speaker,
		defaultUnit: defaultUnit,
		logger:      logger,
	}
}

// Attach subscribes the announcer to connection and announcement events.
func (a *Announcer) Attach(b *bus.Bus) {
	a.subs = append(a.subs,
		b.On(bus.TypeConnection, a.handleConnection),
		b.On(bus.TypeAnnouncement, a.handleAnnouncement),
	)
}

// Detach removes the announcer's subscriptions.
func (a *Announcer) Detach(b *bus.Bus) {
	for _, sub := range a.subs {
		b.Off(sub)
	}
	a.subs = nil
}

// handleConnection publishes a family's new health as a retained topic so
// late subscribers see the last-known state.
func (a *Announcer) handleConnection(ev bus.Event) {
	change, ok := ev.(bus.ConnectionChanged)
	if !ok {
		return
	}
	if a.broker == nil || !a.broker.IsConnected() {
		return
	}

	payload, err := json.Marshal(change)
	if err != nil {
		return
	}
	topic := mqtt.Topics{}.FamilyHealth(change.Family)
	if err := a.broker.PublishRetained(topic, payload); err != nil {
		a.logger.Warn("health publish failed", "family", change.Family, "error", err)
	}
}

// handleAnnouncement delivers an announcement over MQTT, or speaks it on
// the fallback unit when no broker is available.
func (a *Announcer) handleAnnouncement(ev bus.Event) {
	ann, ok := ev.(bus.Announcement)
	if !ok {
		return
	}

	if a.broker != nil && a.broker.IsConnected() {
		payload, err := json.Marshal(ann)
		if err != nil {
			return
		}
		if err := a.broker.Publish(mqtt.Topics{}.Announce(), payload, 1, false); err != nil {
			a.logger.Warn("announcement publish failed", "error", err)
		}
		return
	}

	if a.speaker == nil {
		a.logger.Debug("announcement dropped, no delivery channel", "text", ann.Text)
		return
	}

	unit := ann.Room
	if unit == "" {
		unit = a.defaultUnit
	}
	if unit == "" {
		a.logger.Debug("announcement dropped, no speaker unit", "text", ann.Text)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sayTimeout)
	defer cancel()
	if err := a.speaker.Say(ctx, unit, ann.Text); err != nil {
		a.logger.Warn("spoken announcement failed", "unit", unit, "error", err)
	}
}
