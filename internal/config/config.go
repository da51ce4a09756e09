package config

import (
	"errors"
	"fmt"
	"time"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	JWT      JWTConfig      `mapstructure:"jwt" yaml:"jwt"`
	Bus      BusConfig      `mapstructure:"bus" yaml:"bus"`
	WS       WSConfig       `mapstructure:"ws" yaml:"ws"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Relay    RelayConfig    `mapstructure:"relay" yaml:"relay"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
}

// DatabaseConfig selects the SQL backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// JWTConfig configures bearer token issuance and validation.
type JWTConfig struct {
	Secret   string        `mapstructure:"secret" yaml:"secret"`
	Issuer   string        `mapstructure:"issuer" yaml:"issuer"`
	Audience string        `mapstructure:"audience" yaml:"audience"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// BusConfig tunes the in-process event broker.
type BusConfig struct {
	FeedBuffer int `mapstructure:"feed_buffer" yaml:"feed_buffer"`
}

// WSConfig tunes WebSocket subscription connections.
type WSConfig struct {
	MaxMessageBytes int64   `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	InboundRPS      float64 `mapstructure:"inbound_rps" yaml:"inbound_rps"`
	InboundBurst    int     `mapstructure:"inbound_burst" yaml:"inbound_burst"`
}

// HTTPConfig holds router-level knobs.
type HTTPConfig struct {
	RateLimit   int      `mapstructure:"rate_limit" yaml:"rate_limit"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// RelayConfig configures mirroring of chat events to RabbitMQ. Empty URL disables it.
type RelayConfig struct {
	AMQPURL  string `mapstructure:"amqp_url" yaml:"amqp_url"`
	Exchange string `mapstructure:"exchange" yaml:"exchange"`
}

// TracingConfig configures the OTLP trace exporter. Empty endpoint disables export.
type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" yaml:"service_name"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "wiredm.db",
		},
		JWT: JWTConfig{
			Secret:   "change-me",
			Issuer:   "wiredm",
			Audience: "wiredm",
			TTL:      time.Hour,
		},
		Bus: BusConfig{
			FeedBuffer: 64,
		},
		WS: WSConfig{
			MaxMessageBytes: 1 << 16,
			InboundRPS:      5,
			InboundBurst:    10,
		},
		HTTP: HTTPConfig{
			RateLimit:   20,
			CORSOrigins: []string{"*"},
		},
		Relay: RelayConfig{
			Exchange: "wiredm.events",
		},
		Tracing: TracingConfig{
			ServiceName: "wiredm",
		},
	}
}

// Validate reports configuration that cannot produce a working server.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database dsn must not be empty"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt secret must not be empty"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt ttl must be positive"))
	}
	if c.Bus.FeedBuffer <= 0 {
		errs = append(errs, errors.New("bus feed_buffer must be positive"))
	}
	return errors.Join(errs...)
}
