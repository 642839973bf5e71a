package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Tintcore.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig contains the control-engine settings.
type ServiceConfig struct {
	// Mode selects the execution backend: "sim" (in-process simulator)
	// or "real" (remote vendor panel API).
	Mode string `yaml:"mode"`

	// MinDwellSeconds is the minimum interval between accepted tint
	// changes on the same panel.
	MinDwellSeconds int `yaml:"min_dwell_seconds"`

	// Transition controls how accepted commands are committed.
	Transition TransitionConfig `yaml:"transition"`

	// Remote contains the vendor API settings (real mode only).
	Remote RemoteConfig `yaml:"remote"`
}

// TransitionConfig controls the transition executor strategy.
type TransitionConfig struct {
	// Strategy is "deferred" (commit after DelaySeconds on a background
	// goroutine, mirroring real glass tinting time) or "immediate"
	// (commit synchronously before the command returns).
	Strategy string `yaml:"strategy"`

	// DelaySeconds is the simulated physical transition time for the
	// deferred strategy.
	DelaySeconds int `yaml:"delay_seconds"`
}

// RemoteConfig contains connection settings for the vendor panel API.
type RemoteConfig struct {
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	SiteID         string `yaml:"site_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// LegacySnapshot is the path to the pre-relational JSON snapshot
	// (panels.json). If the file exists and the database is empty, its
	// contents are imported once at startup.
	LegacySnapshot string `yaml:"legacy_snapshot"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
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
// The broker is optional; when disabled, panel state events are only
// broadcast over WebSocket.
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for transition
// telemetry. Optional.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// SecurityConfig contains API security settings.
type SecurityConfig struct {
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig contains bearer-token authentication settings.
// When enabled, mutating endpoints require a valid HS256 token and the
// token subject is recorded as the audit actor.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TINTCORE_SECTION_KEY
// For example: TINTCORE_DATABASE_PATH, TINTCORE_MODE
func Load(path string) (*Config, error) {
	cfg := Default()

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

// Default returns a Config with sensible defaults.
// Used directly when no config file is present (sim mode works out of the box).
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Mode:            "sim",
			MinDwellSeconds: 20,
			Transition: TransitionConfig{
				Strategy:     "deferred",
				DelaySeconds: 2,
			},
			Remote: RemoteConfig{
				TimeoutSeconds: 10,
			},
		},
		Database: DatabaseConfig{
			Path:           "./data/tintcore.db",
			WALMode:        true,
			BusyTimeout:    5,
			LegacySnapshot: "./data/panels.json",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
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
				ClientID: "tintcore",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TINTCORE_MODE"); v != "" {
		cfg.Service.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("TINTCORE_MIN_DWELL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Service.MinDwellSeconds = n
		}
	}
	if v := os.Getenv("TINTCORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TINTCORE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("TINTCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TINTCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TINTCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("TINTCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("TINTCORE_REMOTE_URL"); v != "" {
		cfg.Service.Remote.URL = v
	}
	if v := os.Getenv("TINTCORE_REMOTE_API_KEY"); v != "" {
		cfg.Service.Remote.APIKey = v
	}
	// Auth secret should come from the environment in production.
	if v := os.Getenv("TINTCORE_AUTH_SECRET"); v != "" {
		cfg.Security.Auth.Secret = v
	}
}

// minAuthSecretLength is the minimum accepted bearer-token secret length.
// Commands drive physical glass; a guessable secret would let anyone
// operate the installation.
const minAuthSecretLength = 32

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch c.Service.Mode {
	case "sim", "real":
	default:
		errs = append(errs, `service.mode must be "sim" or "real"`)
	}

	if c.Service.MinDwellSeconds < 0 {
		errs = append(errs, "service.min_dwell_seconds must not be negative")
	}

	switch c.Service.Transition.Strategy {
	case "immediate", "deferred":
	default:
		errs = append(errs, `service.transition.strategy must be "immediate" or "deferred"`)
	}
	if c.Service.Transition.DelaySeconds < 0 {
		errs = append(errs, "service.transition.delay_seconds must not be negative")
	}

	if c.Service.Mode == "real" && c.Service.Remote.URL == "" {
		errs = append(errs, "service.remote.url is required in real mode (set TINTCORE_REMOTE_URL)")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Security.Auth.Enabled {
		if c.Security.Auth.Secret == "" {
			errs = append(errs, "security.auth.secret is required when auth is enabled (set TINTCORE_AUTH_SECRET)")
		} else if len(c.Security.Auth.Secret) < minAuthSecretLength {
			errs = append(errs, "security.auth.secret must be at least 32 characters")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// MinDwell returns the dwell interval as a Duration.
func (c *Config) MinDwell() time.Duration {
	return time.Duration(c.Service.MinDwellSeconds) * time.Second
}

// TransitionDelay returns the simulated transition time as a Duration.
func (c *Config) TransitionDelay() time.Duration {
	return time.Duration(c.Service.Transition.DelaySeconds) * time.Second
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
