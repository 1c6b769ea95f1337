package hue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/homedeck/homedeck-core/internal/family"
	"github.com/homedeck/homedeck-core/internal/infrastructure/config"
	"github.com/homedeck/homedeck-core/internal/rooms"
)

const defaultTimeout = 5 * time.Second

// Sensor types reported by the bridge that the dashboard consumes.
// Other types (daylight, switches) are skipped.
const (
	typePresence    = "ZLLPresence"
	typeTemperature = "ZLLTemperature"
)

// Client polls a Hue-style bridge for motion sensors, temperature sensors,
// and lights, and issues light commands.
type Client struct {
	http     *family.HTTP
	username string
	mapper   *rooms.Mapper
	logger   family.Logger
}

// New creates a bridge client. Missing bridge IP or username disables the
// family via *family.ConfigError.
func New(cfg config.HueConfig, mapper *rooms.Mapper, logger family.Logger) (*Client, error) {
	if cfg.BridgeIP == "" {
		return nil, &family.ConfigError{Family: family.Hue, Field: "bridge_ip"}
	}
	if cfg.Username == "" {
		return nil, &family.ConfigError{Family: family.Hue, Field: "username"}
	}
	if logger == nil {
		logger = family.NoopLogger()
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &Client{
		http:     family.NewHTTP(family.Hue, "http://"+cfg.BridgeIP, timeout),
		username: cfg.Username,
		mapper:   mapper,
		logger:   logger,
	}, nil
}

// Family implements family.Client.
func (c *Client) Family() family.Family { return family.Hue }

// sensor is one /sensors entity. Pointer fields distinguish absent from
// zero so a presence sensor is not mistaken for a temperature one.
type sensor struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	State struct {
		Presence    *bool `json:"presence"`
		Temperature *int  `json:"temperature"`
	} `json:"state"`
}

type light struct {
	Name  string `json:"name"`
	State struct {
		On  bool `json:"on"`
		Bri int  `json:"bri"`
	} `json:"state"`
}

// FetchState polls /sensors and /lights and returns the combined signal
// set. A malformed entity is logged and skipped; the fetch still succeeds
// with the entities that parsed.
func (c *Client) FetchState(ctx context.Context) ([]family.Reading, error) {
	var (
		sensors map[string]json.RawMessage
		lights  map[string]json.RawMessage
	)
	err := family.Retry(ctx, func() error {
		if err := c.http.GetJSON(ctx, c.path("sensors"), &sensors); err != nil {
			return err
		}
		return c.http.GetJSON(ctx, c.path("lights"), &lights)
	})
	if err != nil {
		return nil, err
	}

	readings := c.parseSensors(sensors)
	readings = append(readings, c.parseLights(lights)...)
	return readings, nil
}

func (c *Client) parseSensors(entities map[string]json.RawMessage) []family.Reading {
	var readings []family.Reading
	for _, id := range sortedIDs(entities) {
		var s sensor
		if err := json.Unmarshal(entities[id], &s); err != nil {
			c.logger.Warn("skipping unparseable entity",
				"error", &family.ParseError{Family: family.Hue, Entity: "sensor/" + id, Err: err})
			continue
		}

		switch s.Type {
		case typePresence:
			if s.State.Presence == nil {
				c.logger.Warn("skipping unparseable entity",
					"error", &family.ParseError{Family: family.Hue, Entity: "sensor/" + id,
						Err: fmt.Errorf("presence sensor without presence state")})
				continue
			}
			room, ok := c.mapper.Resolve(s.Name)
			if !ok {
				c.logger.Debug("dropping signal from unmapped device", "name", s.Name)
				continue
			}
			readings = append(readings, family.Reading{
				Key: "motion:" + string(room), Value: *s.State.Presence, Room: string(room),
			})
		case typeTemperature:
			if s.State.Temperature == nil {
				c.logger.Warn("skipping unparseable entity",
					"error", &family.ParseError{Family: family.Hue, Entity: "sensor/" + id,
						Err: fmt.Errorf("temperature sensor without temperature state")})
				continue
			}
			room, ok := c.mapper.Resolve(s.Name)
			if !ok {
				c.logger.Debug("dropping signal from unmapped device", "name", s.Name)
				continue
			}
			// The bridge reports centi-degrees (2150 = 21.50 C).
			readings = append(readings, family.Reading{
				Key: "temp:" + string(room), Value: float64(*s.State.Temperature) / 100, Room: string(room),
			})
		}
	}
	return readings
}

func (c *Client) parseLights(entities map[string]json.RawMessage) []family.Reading {
	var readings []family.Reading
	for _, id := range sortedIDs(entities) {
		var l light
		if err := json.Unmarshal(entities[id], &l); err != nil {
			c.logger.Warn("skipping unparseable entity",
				"error", &family.ParseError{Family: family.Hue, Entity: "light/" + id, Err: err})
			continue
		}

		room := ""
		if r, ok := c.mapper.Resolve(l.Name); ok {
			room = string(r)
		}
		readings = append(readings,
			family.Reading{Key: "light:" + id + ":on", Value: l.State.On, Room: room},
			family.Reading{Key: "light:" + id + ":bri", Value: l.State.Bri, Room: room},
		)
	}
	return readings
}

// FetchHealth probes /api/config, which the bridge serves without
// credentials. Each attempt runs with a tight timeout; transient failures
// retry locally, so a single blip does not report the bridge offline.
func (c *Client) FetchHealth(ctx context.Context) family.Health {
	err := family.Retry(ctx, func() error {
		return c.http.GetJSONTimeout(ctx, "/api/config", nil, family.HealthTimeout)
	})
	if err != nil {
		return family.Health{Online: false, Detail: healthDetail(err)}
	}
	return family.Health{Online: true}
}

// SetLightState turns a light on or off.
func (c *Client) SetLightState(ctx context.Context, id string, on bool) error {
	return c.http.PutJSON(ctx, c.path("lights/"+id+"/state"), map[string]bool{"on": on})
}

func (c *Client) path(resource string) string {
	return "/api/" + c.username + "/" + resource
}

func healthDetail(err error) string {
	var fe *family.FetchError
	if errors.As(err, &fe) {
		return "bridge unreachable (" + fe.Cause + ")"
	}
	return "bridge unreachable"
}

func sortedIDs(m map[string]json.RawMessage) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ family.Client = (*Client)(nil)
