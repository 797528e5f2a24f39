// Package config loads service settings from defaults, an optional YAML file
// and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfigFile       = "CALC_CONFIG_FILE"
	EnvAddr             = "CALC_ADDR"
	EnvShutdownTimeout  = "CALC_SHUTDOWN_TIMEOUT"
	EnvLogLevel         = "CALC_LOG_LEVEL"
	EnvTelemetryEnabled = "CALC_TELEMETRY_ENABLED"
	EnvSessionIdleTTL   = "CALC_SESSION_IDLE_TTL"
	EnvServiceName      = "OTEL_SERVICE_NAME"
)

const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultLogLevel        = "info"
	DefaultServiceName     = "go-chi-accumulator"
	DefaultSessionIdleTTL  = 30 * time.Minute
)

var errAddrRequired = errors.New("listen address must be provided")

// Config holds the API server settings.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`
	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// TelemetryEnabled switches the OTLP trace, metric and log exporters on.
	TelemetryEnabled bool `yaml:"telemetry_enabled"`
	// ServiceName is reported as the OTel service.name resource attribute.
	ServiceName string `yaml:"service_name"`
	// SessionIdleTTL is how long an unused calculator session survives.
	// Zero keeps sessions until they are deleted.
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Addr:             DefaultAddr,
		ShutdownTimeout:  DefaultShutdownTimeout,
		LogLevel:         DefaultLogLevel,
		TelemetryEnabled: true,
		ServiceName:      DefaultServiceName,
		SessionIdleTTL:   DefaultSessionIdleTTL,
	}
}

// LoadDotEnv loads variables from .env when present. Existing process
// environment variables are not overridden.
func LoadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err == nil {
		return nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load .env: %w", err)
}

// Load builds the configuration: defaults, then the YAML file named by
// CALC_CONFIG_FILE (if set), then individual environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(contents, c); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	return nil
}

func (c *Config) mergeEnv() error {
	if v, ok := os.LookupEnv(EnvAddr); ok {
		c.Addr = v
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = v
	}

	if v, ok := os.LookupEnv(EnvServiceName); ok && v != "" {
		c.ServiceName = v
	}

	if v, ok := os.LookupEnv(EnvShutdownTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = d
	}

	if v, ok := os.LookupEnv(EnvSessionIdleTTL); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvSessionIdleTTL, err)
		}
		c.SessionIdleTTL = d
	}

	if v, ok := os.LookupEnv(EnvTelemetryEnabled); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvTelemetryEnabled, err)
		}
		c.TelemetryEnabled = b
	}

	return nil
}

// Validate checks required fields and fills in defaults for zero values.
func Validate(c *Config) error {
	if c.Addr == "" {
		return errAddrRequired
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.SessionIdleTTL < 0 {
		return fmt.Errorf("session idle ttl must not be negative, got %s", c.SessionIdleTTL)
	}

	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}

	return nil
}

// Level returns the parsed zap level. Call after Validate.
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
