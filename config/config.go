// Package config loads server settings from defaults, an optional YAML file
// and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all application configuration.
type Config struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	MaxRequestSize int           `yaml:"max_request_size"`
	Env            string        `yaml:"env"`
	LogLevel       string        `yaml:"log_level"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	StaticDir      string        `yaml:"static_dir"`
	// MetricsPath is where Prometheus metrics are served. Empty disables it.
	MetricsPath string `yaml:"metrics_path"`
}

// Environment variables read by Load.
const (
	EnvHost           = "HOST"
	EnvPort           = "PORT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"
	EnvEnv            = "ENV"
	EnvLogLevel       = "LOG_LEVEL"
	EnvReadTimeout    = "READ_TIMEOUT"
	EnvStaticDir      = "STATIC_DIR"
	EnvMetricsPath    = "METRICS_PATH"
)

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Host:           "127.0.0.1",
		Port:           8080,
		MaxRequestSize: 1024 * 1024,
		Env:            "development",
		LogLevel:       "info",
		MetricsPath:    "/metrics",
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped if
// path is empty), then the variables visible through lookup (skipped if nil).
// The result is validated.
func Load(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if lookup != nil {
		if err := cfg.applyEnv(lookup); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv is Load with the process environment.
func FromEnv(path string) (*Config, error) {
	return Load(path, os.LookupEnv)
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	if v, ok := lookup(EnvHost); ok {
		c.Host = v
	}
	if v, ok := lookup(EnvPort); ok {
		port, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvPort, v, err)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvMaxRequestSize); ok {
		size, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvMaxRequestSize, v, err)
		}
		c.MaxRequestSize = size
	}
	if v, ok := lookup(EnvEnv); ok {
		c.Env = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvReadTimeout); ok {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvReadTimeout, v, err)
		}
		c.ReadTimeout = d
	}
	if v, ok := lookup(EnvStaticDir); ok {
		c.StaticDir = v
	}
	if v, ok := lookup(EnvMetricsPath); ok {
		c.MetricsPath = v
	}
	return nil
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Host == "":
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range 1-65535", ErrInvalidConfig, c.Port)
	case c.MaxRequestSize <= 0:
		return fmt.Errorf("%w: max_request_size must be positive, got %d", ErrInvalidConfig, c.MaxRequestSize)
	case c.Env != "development" && c.Env != "production":
		return fmt.Errorf("%w: env must be development or production, got %q", ErrInvalidConfig, c.Env)
	case c.ReadTimeout < 0:
		return fmt.Errorf("%w: read_timeout must not be negative", ErrInvalidConfig)
	case c.MetricsPath != "" && c.MetricsPath[0] != '/':
		return fmt.Errorf("%w: metrics_path must begin with '/'", ErrInvalidConfig)
	}
	return nil
}

// Addr returns host:port for net.Listen.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Development reports whether colored development logging is wanted.
func (c *Config) Development() bool {
	return c.Env == "development"
}
