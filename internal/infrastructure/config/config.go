package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for pipegraph.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Service  ServiceConfig  `yaml:"service"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains the audio-server connection settings.
type ServerConfig struct {
	// Backend selects the connection backend. Currently "sim" runs the
	// in-process simulated server.
	Backend string `yaml:"backend"`

	// NotifyDebounceMs is the coalescing window for change notifications,
	// in milliseconds.
	NotifyDebounceMs int `yaml:"notify_debounce_ms"`

	// DefaultRetryBudgetMs bounds how long a default-device write is
	// retried while the server settles, in milliseconds.
	DefaultRetryBudgetMs int `yaml:"default_retry_budget_ms"`

	// DefaultRetryIntervalMs is the pause between default-device retry
	// attempts, in milliseconds.
	DefaultRetryIntervalMs int `yaml:"default_retry_interval_ms"`
}

// DatabaseConfig contains SQLite database settings for the preset store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
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

// InfluxDBConfig contains InfluxDB connection settings for telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// ServiceConfig names the systemd user units the engine reports on and
// controls.
type ServiceConfig struct {
	Units []string `yaml:"units"`
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
// Environment variables follow the pattern: PIPEGRAPH_SECTION_KEY
// For example: PIPEGRAPH_DATABASE_PATH, PIPEGRAPH_MQTT_HOST
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

// Default returns a Config with sensible defaults. The result validates
// cleanly, so it also serves callers that run without a config file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Backend:                "sim",
			NotifyDebounceMs:       25,
			DefaultRetryBudgetMs:   2000,
			DefaultRetryIntervalMs: 100,
		},
		Database: DatabaseConfig{
			Path:        "./data/pipegraph.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "pipegraph",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Metrics: MetricsConfig{
			Listen: "127.0.0.1:9480",
		},
		Service: ServiceConfig{
			Units: []string{
				"pipewire.service",
				"pipewire-pulse.service",
				"wireplumber.service",
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
// Environment variables follow the pattern: PIPEGRAPH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PIPEGRAPH_SERVER_BACKEND"); v != "" {
		cfg.Server.Backend = v
	}

	if v := os.Getenv("PIPEGRAPH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("PIPEGRAPH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PIPEGRAPH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PIPEGRAPH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("PIPEGRAPH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("PIPEGRAPH_METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch c.Server.Backend {
	case "sim":
	default:
		errs = append(errs, fmt.Sprintf("server.backend %q is not supported", c.Server.Backend))
	}
	if c.Server.NotifyDebounceMs <= 0 {
		errs = append(errs, "server.notify_debounce_ms must be positive")
	}
	if c.Server.DefaultRetryBudgetMs <= 0 {
		errs = append(errs, "server.default_retry_budget_ms must be positive")
	}
	if c.Server.DefaultRetryIntervalMs <= 0 {
		errs = append(errs, "server.default_retry_interval_ms must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, "metrics.listen is required when metrics are enabled")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetNotifyDebounce returns the notification coalescing window as a Duration.
func (c *Config) GetNotifyDebounce() time.Duration {
	return time.Duration(c.Server.NotifyDebounceMs) * time.Millisecond
}

// GetDefaultRetryBudget returns the default-device retry budget as a Duration.
func (c *Config) GetDefaultRetryBudget() time.Duration {
	return time.Duration(c.Server.DefaultRetryBudgetMs) * time.Millisecond
}

// GetDefaultRetryInterval returns the default-device retry interval as a Duration.
func (c *Config) GetDefaultRetryInterval() time.Duration {
	return time.Duration(c.Server.DefaultRetryIntervalMs) * time.Millisecond
}
