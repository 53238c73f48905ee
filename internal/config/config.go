// Package config handles configuration loading from environment variables
// and an optional YAML file. The environment is the primary surface: the
// process supervisor injects it from an environment file at startup.
// Precedence: environment variables > config file > defaults.
//
// The configuration is loaded once at process start and never mutated
// afterwards; a configuration change requires a process restart.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "15s", "30s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all agent configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Collection CollectionConfig `yaml:"collection"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds collector endpoint connection settings.
type ServerConfig struct {
	EndpointURL string `yaml:"endpoint_url"`
	AuthToken   string `yaml:"auth_token"`
	ServerName  string `yaml:"server_name"`
	AgentID     string `yaml:"agent_id"`
}

// CollectionConfig holds metric sampling settings.
type CollectionConfig struct {
	Interval     Duration `yaml:"interval"`
	ProcessLimit int      `yaml:"process_limit"`
}

// DeliveryConfig holds HTTP delivery and retry settings.
type DeliveryConfig struct {
	Timeout     Duration `yaml:"timeout"`
	MaxRetries  int      `yaml:"max_retries"`
	BackoffBase Duration `yaml:"backoff_base"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	hostname, _ := os.Hostname()
	return &Config{
		Server: ServerConfig{
			ServerName: hostname,
		},
		Collection: CollectionConfig{
			Interval:     Duration{30 * time.Second},
			ProcessLimit: 20,
		},
		Delivery: DeliveryConfig{
			Timeout:     Duration{10 * time.Second},
			MaxRetries:  3,
			BackoffBase: Duration{2 * time.Second},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used. Environment variables take highest precedence.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. These are the options the supervisor's environment file
// is expected to set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENDPOINT_URL"); v != "" {
		cfg.Server.EndpointURL = v
	}
	if v := os.Getenv("AUTH_TOKEN"); v != "" {
		cfg.Server.AuthToken = v
	}
	if v := os.Getenv("SERVER_NAME"); v != "" {
		cfg.Server.ServerName = v
	}
	if v := os.Getenv("AGENT_ID"); v != "" {
		cfg.Server.AgentID = v
	}
	if v := envSeconds("SAMPLE_INTERVAL_SECONDS"); v > 0 {
		cfg.Collection.Interval = Duration{v}
	}
	if v := envSeconds("HTTP_TIMEOUT_SECONDS"); v > 0 {
		cfg.Delivery.Timeout = Duration{v}
	}
	if v, ok := envInt("MAX_RETRIES"); ok && v >= 0 {
		cfg.Delivery.MaxRetries = v
	}
	if v := envSeconds("BACKOFF_BASE_SECONDS"); v > 0 {
		cfg.Delivery.BackoffBase = Duration{v}
	}
	if v, ok := envInt("PROCESS_LIMIT"); ok && v > 0 {
		cfg.Collection.ProcessLimit = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}

// envSeconds reads an integer environment variable expressed in seconds.
// Returns 0 when unset or unparseable.
func envSeconds(name string) time.Duration {
	v, ok := envInt(name)
	if !ok || v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Second
}

// envInt reads an integer environment variable. The second return value
// reports whether the variable was set and parseable.
func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Validate checks that the configuration can support a working delivery
// loop. A validation failure is fatal: the agent must exit before entering
// its run loop rather than tick against a broken endpoint.
func (c *Config) Validate() error {
	if c.Server.EndpointURL == "" {
		return fmt.Errorf("ENDPOINT_URL is required")
	}
	u, err := url.Parse(c.Server.EndpointURL)
	if err != nil {
		return fmt.Errorf("invalid ENDPOINT_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("ENDPOINT_URL must be http or https (got %q)", c.Server.EndpointURL)
	}
	if u.Host == "" {
		return fmt.Errorf("ENDPOINT_URL has no host (got %q)", c.Server.EndpointURL)
	}
	if c.Server.AuthToken == "" {
		return fmt.Errorf("AUTH_TOKEN is required")
	}
	if c.Collection.Interval.Duration <= 0 {
		return fmt.Errorf("sampling interval must be positive (got %v)", c.Collection.Interval.Duration)
	}
	if c.Delivery.Timeout.Duration <= 0 {
		return fmt.Errorf("HTTP timeout must be positive (got %v)", c.Delivery.Timeout.Duration)
	}
	if c.Delivery.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative (got %d)", c.Delivery.MaxRetries)
	}
	if c.Delivery.BackoffBase.Duration <= 0 {
		return fmt.Errorf("backoff base must be positive (got %v)", c.Delivery.BackoffBase.Duration)
	}
	return nil
}
