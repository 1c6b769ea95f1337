package tapo

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

// Client talks to the plug relay, which holds the vendor cloud session and
// exposes the plugs as plain JSON.
type Client struct {
	http   *family.HTTP
	mapper *rooms.Mapper
	logger family.Logger
}

// New creates a relay client. A missing relay URL disables the family.
func New(cfg config.RelayConfig, mapper *rooms.Mapper, logger family.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, &family.ConfigError{Family: family.Tapo, Field: "url"}
	}
	if logger == nil {
		logger = family.NoopLogger()
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &Client{
		http:   family.NewHTTP(family.Tapo, cfg.URL, timeout),
		mapper: mapper,
		logger: logger,
	}, nil
}

// Family implements family.Client.
func (c *Client) Family() family.Family { return family.Tapo }

type plug struct {
	Name  string   `json:"name"`
	On    bool     `json:"on"`
	Power *float64 `json:"power_w"`
}

// FetchState polls /plugs and emits on/off (and power draw when the plug
// reports it) per plug.
func (c *Client) FetchState(ctx context.Context) ([]family.Reading, error) {
	var resp struct {
		Plugs []json.RawMessage `json:"plugs"`
	}
	err := family.Retry(ctx, func() error {
		return c.http.GetJSON(ctx, "/plugs", &resp)
	})
	if err != nil {
		return nil, err
	}

	var readings []family.Reading
	for i, raw := range resp.Plugs {
		var p plug
		if err := json.Unmarshal(raw, &p); err != nil || p.Name == "" {
			c.logger.Warn("skipping unparseable entity",
				"error", &family.ParseError{Family: family.Tapo, Entity: "plug/" + strconv.Itoa(i), Err: err})
			continue
		}

		room := ""
		if r, ok := c.mapper.Resolve(p.Name); ok {
			room = string(r)
		}
		readings = append(readings, family.Reading{Key: "plug:" + p.Name + ":on", Value: p.On, Room: room})
		if p.Power != nil {
			readings = append(readings, family.Reading{Key: "plug:" + p.Name + ":power", Value: *p.Power, Room: room})
		}
	}
	return readings, nil
}

// FetchHealth probes /health. The relay reports vendor-session problems in
// the body, so an expired cloud login is distinguishable from the relay
// itself being down.
func (c *Client) FetchHealth(ctx context.Context) family.Health {
	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	err := family.Retry(ctx, func() error {
		return c.http.GetJSONTimeout(ctx, "/health", &resp, family.HealthTimeout)
	})
	if err != nil {
		return family.Health{Online: false, Detail: "relay unreachable"}
	}
	if !resp.OK {
		detail := "relay degraded"
		if resp.Error == "auth_expired" {
			detail = "vendor auth expired"
		} else if resp.Error != "" {
			detail = resp.Error
		}
		return family.Health{Online: false, Detail: detail}
	}
	return family.Health{Online: true}
}

// SetPlug switches a plug on or off.
func (c *Client) SetPlug(ctx context.Context, name string, on bool) error {
	return c.http.PostJSON(ctx, "/plugs/"+name, map[string]bool{"on": on}, nil)
}

var _ family.Client = (*Client)(nil)
