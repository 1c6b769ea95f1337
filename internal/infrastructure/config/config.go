package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Homedeck Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Polling   PollingConfig   `yaml:"polling"`
	Retention RetentionConfig `yaml:"retention"`
	Rooms     []RoomRule      `yaml:"rooms"`
	Families  FamiliesConfig  `yaml:"families"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`

	// AnnounceUnit is the speaker unit used for spoken announcements when
	// no room is attached to the announcement and MQTT is disabled.
	AnnounceUnit string `yaml:"announce_unit"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
/// The broker is optional: when disabled, announcements fall back to the
// speaker relay's TTS endpoint.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings for the optional
// telemetry mirror.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// PollingConfig contains per-task poll cadences (seconds).
type PollingConfig struct {
	Sensors    int `yaml:"sensors"`
	Lights     int `yaml:"lights"`
	Speakers   int `yaml:"speakers"`
	Plugs      int `yaml:"plugs"`
	Stream     int `yaml:"stream"`
	Thermostat int `yaml:"thermostat"`
	Health     int `yaml:"health"`
}

// RetentionConfig contains history retention windows (hours).
type RetentionConfig struct {
	TemperatureHours int `yaml:"temperature_hours"`
	ActivityHours    int `yaml:"activity_hours"`
}

// RoomRule maps a device-name pattern to a canonical room.
// Rules are evaluated in order; the first match wins.
type RoomRule struct {
	Pattern string `yaml:"pattern"`
	Room    string `yaml:"room"`
}

// FamiliesConfig groups per-family client settings.
// A family whose required fields are missing is disabled, not fatal.
type FamiliesConfig struct {
	Hue    HueConfig   `yaml:"hue"`
	Sonos  RelayConfig `yaml:"sonos"`
	Tapo   RelayConfig `yaml:"tapo"`
	Stream RelayConfig `yaml:"stream"`
	Nest   NestConfig  `yaml:"nest"`
}

// HueConfig contains sensor/light hub connection settings.
type HueConfig struct {
	BridgeIP string `yaml:"bridge_ip"`
	Username string `yaml:"username"`
	Timeout  int    `yaml:"timeout"`
}

// Configured reports whether the hub has the credentials it needs.
func (c HueConfig) Configured() bool {
	return c.BridgeIP != "" && c.Username != ""
}

// RelayConfig contains settings for an HTTP relay-backed family
// (speakers, plugs, streaming box).
type RelayConfig struct {
	URL     string `yaml:"url"`
	Timeout int    `yaml:"timeout"`
}

// Configured reports whether the relay has an address.
func (c RelayConfig) Configured() bool {
	return c.URL != ""
}

// NestConfig contains thermostat OAuth client settings.
type NestConfig struct {
	ProjectID    string `yaml:"project_id"`
	DeviceID     string `yaml:"device_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Timeout      int    `yaml:"timeout"`
}

// Configured reports whether the thermostat client has full credentials.
func (c NestConfig) Configured() bool {
	return c.ProjectID != "" && c.DeviceID != "" && c.ClientID != "" &&
		c.ClientSecret != "" && c.RefreshToken != ""
}

// Load reads, parses, and validates the configuration file at path.
//
// Environment variables override file values and follow the pattern
// HOMEDECK_SECTION_KEY (for example HOMEDECK_DATABASE_PATH, HOMEDECK_HUE_USERNAME).
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Name:     "Homedeck",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/homedeck.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "homedeck-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Polling: PollingConfig{
			Sensors:    10,
			Lights:     15,
			Speakers:   20,
			Plugs:      30,
			Stream:     30,
			Thermostat: 60,
			Health:     30,
		},
		Retention: RetentionConfig{
			TemperatureHours: 24,
			ActivityHours:    48,
		},
		Families: FamiliesConfig{
			Hue:    HueConfig{Timeout: 5},
			Sonos:  RelayConfig{Timeout: 5},
			Tapo:   RelayConfig{Timeout: 10},
			Stream: RelayConfig{Timeout: 5},
			Nest:   NestConfig{Timeout: 10},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOMEDECK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("HOMEDECK_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("HOMEDECK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMEDECK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMEDECK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("HOMEDECK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Device-family credentials are the values most likely to live outside
	// the config file on a shared box.
	if v := os.Getenv("HOMEDECK_HUE_USERNAME"); v != "" {
		cfg.Families.Hue.Username = v
	}
	if v := os.Getenv("HOMEDECK_NEST_CLIENT_SECRET"); v != "" {
		cfg.Families.Nest.ClientSecret = v
	}
	if v := os.Getenv("HOMEDECK_NEST_REFRESH_TOKEN"); v != "" {
		cfg.Families.Nest.RefreshToken = v
	}
}

// Validate checks the configuration for errors.
//
// Only core sections are fatal here. A family with missing credentials is
// handled at wiring time: the family is disabled and the rest of the system
// proceeds.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Retention.TemperatureHours <= 0 {
		errs = append(errs, "retention.temperature_hours must be positive")
	}
	if c.Retention.ActivityHours <= 0 {
		errs = append(errs, "retention.activity_hours must be positive")
	}

	for i, rule := range c.Rooms {
		if rule.Pattern == "" || rule.Room == "" {
			errs = append(errs, fmt.Sprintf("rooms[%d]: pattern and room are required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
