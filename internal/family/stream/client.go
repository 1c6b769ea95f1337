package stream

import (
	"context"
	"time"

	"github.com/homedeck/homedeck-core/internal/family"
	"github.com/homedeck/homedeck-core/internal/infrastructure/config"
)

const defaultTimeout = 5 * time.Second

// Playback states emitted as stream:state.
const (
	StateIdle    = "idle"
	StatePlaying = "playing"
)

// Client talks to the streaming-box relay, which bridges the box's debug
// interface and reports what is currently on screen.
type Client struct {
	http   *family.HTTP
	logger family.Logger
}

// New creates a relay client. A missing relay URL disables the family.
func New(cfg config.RelayConfig, logger family.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, &family.ConfigError{Family: family.Stream, Field: "url"}
	}
	if logger == nil {
		logger = family.NoopLogger()
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &Client{
		http:   family.NewHTTP(family.Stream, cfg.URL, timeout),
		logger: logger,
	}, nil
}

// Family implements family.Client.
func (c *Client) Family() family.Family { return family.Stream }

// FetchState polls /current for the playback state and foreground app.
// The stream signals carry no room; the box is a singleton.
func (c *Client) FetchState(ctx context.Context) ([]family.Reading, error) {
	var current struct {
		State string `json:"state"`
		App   string `json:"app"`
	}
	err := family.Retry(ctx, func() error {
		return c.http.GetJSON(ctx, "/current", &current)
	})
	if err != nil {
		return nil, err
	}

	state := current.State
	if state != StatePlaying {
		state = StateIdle
	}
	return []family.Reading{
		{Key: "stream:state", Value: state},
		{Key: "stream:app", Value: current.App},
	}, nil
}

// FetchHealth probes /health. A powered-off box with a live relay is
// still online; the detail records that the box itself is dark.
func (c *Client) FetchHealth(ctx context.Context) family.Health {
	var resp struct {
		OK              bool `json:"ok"`
		DeviceConnected bool `json:"device_connected"`
	}
	err := family.Retry(ctx, func() error {
		return c.http.GetJSONTimeout(ctx, "/health", &resp, family.HealthTimeout)
	})
	if err != nil {
		return family.Health{Online: false, Detail: "relay unreachable"}
	}
	if !resp.OK {
		return family.Health{Online: false, Detail: "relay degraded"}
	}
	if !resp.DeviceConnected {
		return family.Health{Online: true, Detail: "box powered off"}
	}
	return family.Health{Online: true}
}

var _ family.Client = (*Client)(nil)
