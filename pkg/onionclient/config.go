package onionclient

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all onion-client configuration: the recognized options
// from the wire spec plus the ambient logging/metrics/rate-limit
// settings every deployed binary needs.
type Config struct {
	Path      PathConfig      `yaml:"path"`
	Transport TransportConfig `yaml:"transport"`
	Directory DirectoryConfig `yaml:"directory"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// PathConfig controls path selection.
type PathConfig struct {
	// Length is the number of hops per onion request.
	Length int `yaml:"path_length"`
}

// TransportConfig controls the outbound HTTP POST to the entry hop.
type TransportConfig struct {
	TimeoutMS int  `yaml:"timeout_ms"`
	TLSVerify bool `yaml:"tls_verify"`
}

// DirectoryConfig controls the seed-node JSON-RPC fetcher.
type DirectoryConfig struct {
	SeedNodes      []string `yaml:"seed_nodes"`
	MaxAttempts    int      `yaml:"max_attempts"`
	BackoffSeconds int      `yaml:"backoff_seconds"`
}

// LoggingConfig selects the dev/prod diagnostic posture.
type LoggingConfig struct {
	// Level is "dev" or "prod".
	Level string `yaml:"log_level"`
}

// MetricsConfig controls the optional Prometheus endpoint a
// deployment binary may mount; the core client never serves this
// itself.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Port      int    `yaml:"port"`
	Namespace string `yaml:"namespace"`
}

// RateLimitConfig bounds outbound request rate per entry host.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// DefaultSeedNodes are the well-known Oxen seed-node JSON-RPC
// endpoints consulted when no override is configured.
var DefaultSeedNodes = []string{
	"https://public.loki.foundation:22023",
	"https://seed1.oxen.io:22023",
	"https://seed2.oxen.io:22023",
	"https://seed3.oxen.io:22023",
}

// DefaultConfig returns configuration with the defaults named in the
// wire spec (path length 3, 10s timeouts, TLS verification off for
// dev peers, 5 directory attempts with a 10s backoff).
func DefaultConfig() *Config {
	return &Config{
		Path: PathConfig{
			Length: 3,
		},
		Transport: TransportConfig{
			TimeoutMS: 10000,
			TLSVerify: false,
		},
		Directory: DirectoryConfig{
			SeedNodes:      DefaultSeedNodes,
			MaxAttempts:    5,
			BackoffSeconds: 10,
		},
		Logging: LoggingConfig{
			Level: "dev",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Port:      9090,
			Namespace: "onion_client",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			BurstSize:         40,
		},
	}
}

// LoadConfig loads configuration from a YAML file, applying it over
// DefaultConfig so unspecified fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvironment overrides config values from environment
// variables, following the same ONION_CLIENT_* convention across all
// sections.
func (c *Config) ApplyEnvironment() {
	if v := os.Getenv("ONION_CLIENT_PATH_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Path.Length = n
		}
	}
	if v := os.Getenv("ONION_CLIENT_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Transport.TimeoutMS = n
		}
	}
	if v := os.Getenv("ONION_CLIENT_TLS_VERIFY"); v != "" {
		c.Transport.TLSVerify = v == "true" || v == "1"
	}
	if v := os.Getenv("ONION_CLIENT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ONION_CLIENT_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("ONION_CLIENT_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Metrics.Port = n
		}
	}
	if v := os.Getenv("ONION_CLIENT_RATE_LIMIT_ENABLED"); v != "" {
		c.RateLimit.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("ONION_CLIENT_RATE_LIMIT_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit.RequestsPerSecond = rps
		}
	}
}

// Timeout returns the configured transport timeout as a
// time.Duration.
func (c TransportConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// BackoffInterval returns the configured directory backoff as a
// time.Duration.
func (c DirectoryConfig) BackoffInterval() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}
