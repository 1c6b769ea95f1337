package nest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/homedeck/homedeck-core/internal/family"
	"github.com/homedeck/homedeck-core/internal/infrastructure/config"
)

const (
	defaultBaseURL = "https://smartdevicemanagement.googleapis.com/v1"
	tokenURL       = "https://oauth2.googleapis.com/token"
	defaultTimeout = 10 * time.Second
)

// SDM trait names consumed by the dashboard.
const (
	traitTemperature = "sdm.devices.traits.Temperature"
	traitSetpoint    = "sdm.devices.traits.ThermostatTemperatureSetpoint"
	traitHumidity    = "sdm.devices.traits.Humidity"
	traitMode        = "sdm.devices.traits.ThermostatMode"
)

// Client reads the thermostat through the vendor's device-management API.
// Auth is a long-lived refresh token exchanged for access tokens by the
// oauth2 token source; the dashboard never sees a password.
type Client struct {
	http       *family.HTTP
	devicePath string
	logger     family.Logger
}

// New creates a thermostat client. Any missing OAuth field disables the
// family via *family.ConfigError.
func New(cfg config.NestConfig, logger family.Logger) (*Client, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	return newClient(cfg, defaultBaseURL, tokenURL, logger), nil
}

func checkConfig(cfg config.NestConfig) error {
	for _, f := range []struct{ name, value string }{
		{"project_id", cfg.ProjectID},
		{"device_id", cfg.DeviceID},
		{"client_id", cfg.ClientID},
		{"client_secret", cfg.ClientSecret},
		{"refresh_token", cfg.RefreshToken},
	} {
		if f.value == "" {
			return &family.ConfigError{Family: family.Nest, Field: f.name}
		}
	}
	return nil
}

// newClient is split out so tests can point both the API and the token
// endpoint at a local server.
func newClient(cfg config.NestConfig, baseURL, tokenEndpoint string, logger family.Logger) *Client {
	if logger == nil {
		logger = family.NoopLogger()
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenEndpoint},
	}
	src := oc.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken})

	h := family.NewHTTP(family.Nest, baseURL, timeout)
	h.SetClient(oauth2.NewClient(context.Background(), src))

	return &Client{
		http:       h,
		devicePath: "/enterprises/" + cfg.ProjectID + "/devices/" + cfg.DeviceID,
		logger:     logger,
	}
}

// Family implements family.Client.
func (c *Client) Family() family.Family { return family.Nest }

type device struct {
	Traits map[string]json.RawMessage `json:"traits"`
}

// FetchState reads the device's traits and emits ambient temperature,
// target setpoint, humidity, and mode signals. A trait that is absent or
// unparseable is skipped; the thermostat still reports the rest.
//
// Quota exhaustion (the vendor rate-limits aggressively) surfaces as a
// non-transient FetchError so local retries do not make it worse.
func (c *Client) FetchState(ctx context.Context) ([]family.Reading, error) {
	var dev device
	err := family.Retry(ctx, func() error {
		return c.http.GetJSON(ctx, c.devicePath, &dev)
	})
	if err != nil {
		return nil, err
	}

	var readings []family.Reading

	var temp struct {
		Ambient *float64 `json:"ambientTemperatureCelsius"`
	}
	if c.trait(dev, traitTemperature, &temp) && temp.Ambient != nil {
		readings = append(readings, family.Reading{Key: "thermostat:ambient", Value: *temp.Ambient})
	}

	var setpoint struct {
		Heat *float64 `json:"heatCelsius"`
		Cool *float64 `json:"coolCelsius"`
	}
	if c.trait(dev, traitSetpoint, &setpoint) {
		switch {
		case setpoint.Heat != nil:
			readings = append(readings, family.Reading{Key: "thermostat:target", Value: *setpoint.Heat})
		case setpoint.Cool != nil:
			readings = append(readings, family.Reading{Key: "thermostat:target", Value: *setpoint.Cool})
		}
	}

	var humidity struct {
		Percent *float64 `json:"ambientHumidityPercent"`
	}
	if c.trait(dev, traitHumidity, &humidity) && humidity.Percent != nil {
		readings = append(readings, family.Reading{Key: "thermostat:humidity", Value: *humidity.Percent})
	}

	var mode struct {
		Mode string `json:"mode"`
	}
	if c.trait(dev, traitMode, &mode) && mode.Mode != "" {
		readings = append(readings, family.Reading{Key: "thermostat:mode", Value: strings.ToLower(mode.Mode)})
	}

	return readings, nil
}

func (c *Client) trait(dev device, name string, out any) bool {
	raw, ok := dev.Traits[name]
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn("skipping unparseable entity",
			"error", &family.ParseError{Family: family.Nest, Entity: name, Err: err})
		return false
	}
	return true
}

// FetchHealth is a tight-timeout traits probe. A quota rejection means
// the API is alive but throttling us; that is still offline for display
// purposes, with the quota called out in the detail.
func (c *Client) FetchHealth(ctx context.Context) family.Health {
	err := family.Retry(ctx, func() error {
		return c.http.GetJSONTimeout(ctx, c.devicePath, nil, family.HealthTimeout)
	})
	if err == nil {
		return family.Health{Online: true}
	}
	var fe *family.FetchError
	if errors.As(err, &fe) && fe.Cause == family.CauseQuota {
		return family.Health{Online: false, Detail: "api quota exceeded"}
	}
	return family.Health{Online: false, Detail: "api unreachable"}
}

var _ family.Client = (*Client)(nil)
