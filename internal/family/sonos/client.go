package sonos

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/homedeck/homedeck-core/internal/family"
	"github.com/homedeck/homedeck-core/internal/infrastructure/config"
	"github.com/homedeck/homedeck-core/internal/rooms"
)

const defaultTimeout = 5 * time.Second

// Client talks to the speaker relay, a small HTTP service that fronts the
// speakers' native discovery/control protocol and exposes plain JSON.
type Client struct {
	http   *family.HTTP
	mapper *rooms.Mapper
	logger family.Logger
}

// New creates a relay client. A missing relay URL disables the family.
func New(cfg config.RelayConfig, mapper *rooms.Mapper, logger family.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, &family.ConfigError{Family: family.Sonos, Field: "url"}
	}
	if logger == nil {
		logger = family.NoopLogger()
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &Client{
		http:   family.NewHTTP(family.Sonos, cfg.URL, timeout),
		mapper: mapper,
		logger: logger,
	}, nil
}

// Family implements family.Client.
func (c *Client) Family() family.Family { return family.Sonos }

type unit struct {
	Name       string `json:"name"`
	Volume     int    `json:"volume"`
	State      string `json:"state"`
	NowPlaying string `json:"now_playing"`
}

// FetchState polls /status and emits volume, playback state, and track
// signals per unit. A malformed unit is skipped, not fatal.
func (c *Client) FetchState(ctx context.Context) ([]family.Reading, error) {
	var status struct {
		Units []json.RawMessage `json:"units"`
	}
	err := family.Retry(ctx, func() error {
		return c.http.GetJSON(ctx, "/status", &status)
	})
	if err != nil {
		return nil, err
	}

	var readings []family.Reading
	for i, raw := range status.Units {
		var u unit
		if err := json.Unmarshal(raw, &u); err != nil || u.Name == "" {
			c.logger.Warn("skipping unparseable entity",
				"error", &family.ParseError{Family: family.Sonos, Entity: unitEntity(i), Err: err})
			continue
		}

		room := ""
		if r, ok := c.mapper.Resolve(u.Name); ok {
			room = string(r)
		}
		readings = append(readings,
			family.Reading{Key: "speaker:" + u.Name + ":volume", Value: u.Volume, Room: room},
			family.Reading{Key: "speaker:" + u.Name + ":state", Value: u.State, Room: room},
			family.Reading{Key: "speaker:" + u.Name + ":track", Value: u.NowPlaying, Room: room},
		)
	}
	return readings, nil
}

// FetchHealth probes the relay's /health endpoint. Transient failures
// retry locally before the relay is reported offline.
func (c *Client) FetchHealth(ctx context.Context) family.Health {
	err := family.Retry(ctx, func() error {
		return c.http.GetJSONTimeout(ctx, "/health", nil, family.HealthTimeout)
	})
	if err != nil {
		return family.Health{Online: false, Detail: "relay unreachable"}
	}
	return family.Health{Online: true}
}

// SetVolume sets a unit's volume (0-100).
func (c *Client) SetVolume(ctx context.Context, unit string, level int) error {
	return c.http.PostJSON(ctx, "/units/"+unit+"/volume", map[string]int{"level": level}, nil)
}

// Say plays a short TTS clip on a unit. The announcer uses this as the
// fallback channel when MQTT is disabled.
func (c *Client) Say(ctx context.Context, unit, text string) error {
	return c.http.PostJSON(ctx, "/units/"+unit+"/say", map[string]string{"text": text}, nil)
}

func unitEntity(i int) string {
	return "unit/" + strconv.Itoa(i)
}

var _ family.Client = (*Client)(nil)
