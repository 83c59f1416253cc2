package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Broker port bounds. Ports below 1024 are privileged and never carry
// broker traffic in a boardlink deployment; values outside this range are
// configuration errors.
const (
	MinBrokerPort = 1024
	MaxBrokerPort = 65535
)

// Config is the root configuration structure for boardlink.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Board     BoardConfig     `yaml:"board"`
	Devices   []DeviceConfig  `yaml:"devices"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Database  DatabaseConfig  `yaml:"database"`
	History   HistoryConfig   `yaml:"history"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BoardConfig identifies the board this relay serves.
type BoardConfig struct {
	// Identifier is the board's unique name, used to derive its topics.
	Identifier string `yaml:"identifier"`

	// Platform is the hardware platform label (e.g. "RaspberryPi 3").
	// It travels in every payload the board's devices publish.
	Platform string `yaml:"platform"`
}

// DeviceConfig declares a logical device to register at startup.
type DeviceConfig struct {
	// Name is the device identity (e.g. "GPIO_34", "PWM0"). Temperature
	// sensors are board-scoped and may omit it.
	Name string `yaml:"name"`

	// Kind is the peripheral class: gpio, pwm, or temperature_sensor.
	Kind string `yaml:"kind"`

	// Direction is in or out. GPIO only.
	Direction string `yaml:"direction"`

	// Label is free text describing the attached part (e.g. "LED").
	Label string `yaml:"label"`

	// Monitor starts streaming readings immediately after registration.
	// Temperature sensors only.
	Monitor bool `yaml:"monitor"`
}

// Device kind tokens accepted in DeviceConfig.Kind.
const (
	DeviceKindGPIO              = "gpio"
	DeviceKindPWM               = "pwm"
	DeviceKindTemperatureSensor = "temperature_sensor"
)

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker   MQTTBrokerConfig   `yaml:"broker"`
	Auth     MQTTAuthConfig     `yaml:"auth"`
	QoS      int                `yaml:"qos"`
	LastWill MQTTLastWillConfig `yaml:"last_will"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`

	// ClientIDPrefix is the stable part of the client identity. A
	// per-process suffix is appended so two relays never collide.
	ClientIDPrefix string `yaml:"client_id_prefix"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTLastWillConfig configures the Last Will and Testament message.
// When Topic is empty the daemon defaults it to the board's internal topic
// with a shutdown token, so peers learn about unclean exits.
type MQTTLastWillConfig struct {
	Topic   string `yaml:"topic"`
	Message string `yaml:"message"`
}

// DatabaseConfig contains SQLite database settings for the history journal.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// HistoryConfig controls the device state-history journal.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`

	// RetentionDays prunes journal entries older than this. 0 keeps
	// everything.
	RetentionDays int `yaml:"retention_days"`
}

// APIConfig contains HTTP status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains event-stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
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

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BOARDLINK_SECTION_KEY
// For example: BOARDLINK_MQTT_HOST, BOARDLINK_BOARD_IDENTIFIER
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Board: BoardConfig{
			Identifier: "",
			Platform:   "RaspberryPi 3",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:           "localhost",
				Port:           1883,
				ClientIDPrefix: "boardlink",
			},
			QoS: 0,
		},
		Database: DatabaseConfig{
			Path:        "./data/boardlink.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BOARDLINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Board
	if v := os.Getenv("BOARDLINK_BOARD_IDENTIFIER"); v != "" {
		cfg.Board.Identifier = v
	}
	if v := os.Getenv("BOARDLINK_BOARD_PLATFORM"); v != "" {
		cfg.Board.Platform = v
	}

	// MQTT
	if v := os.Getenv("BOARDLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BOARDLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BOARDLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("BOARDLINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("BOARDLINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Board validation
	if c.Board.Identifier == "" {
		errs = append(errs, "board.identifier is required")
	}
	if c.Board.Platform == "" {
		errs = append(errs, "board.platform is required")
	}

	// MQTT validation
	if c.MQTT.Broker.Port < MinBrokerPort || c.MQTT.Broker.Port > MaxBrokerPort {
		errs = append(errs, fmt.Sprintf("mqtt.broker.port must be between %d and %d", MinBrokerPort, MaxBrokerPort))
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Device validation
	for i, dev := range c.Devices {
		if err := dev.validate(); err != nil {
			errs = append(errs, fmt.Sprintf("devices[%d]: %v", i, err))
		}
	}

	// History validation
	if c.History.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when history is enabled")
	}
	if c.History.RetentionDays < 0 {
		errs = append(errs, "history.retention_days must not be negative")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
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

// validate checks a single device declaration.
func (d DeviceConfig) validate() error {
	switch d.Kind {
	case DeviceKindGPIO:
		if d.Name == "" {
			return fmt.Errorf("gpio device requires a name")
		}
		if d.Direction != "in" && d.Direction != "out" {
			return fmt.Errorf("gpio device direction must be in or out, got %q", d.Direction)
		}
	case DeviceKindPWM:
		if d.Name == "" {
			return fmt.Errorf("pwm device requires a name")
		}
	case DeviceKindTemperatureSensor:
		// Board-scoped, no name required.
	default:
		return fmt.Errorf("unknown device kind %q", d.Kind)
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

// HistoryRetention returns the journal retention as a Duration.
// Zero means keep everything.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}
