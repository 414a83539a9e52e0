// Package config loads marvin-mcp server settings.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// environment variables, then command-line flags (applied by the caller).
// API tokens are never part of the configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teemow/marvin-mcp/internal/marvin"
	"github.com/teemow/marvin-mcp/internal/render"
)

// Transport names.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// MinResponseLimit is the smallest accepted response limit.
const MinResponseLimit = 1000

// Config holds the server settings.
type Config struct {
	Transport      string        `yaml:"transport"`
	HTTPAddr       string        `yaml:"http_addr"`
	Debug          bool          `yaml:"debug"`
	APIBaseURL     string        `yaml:"api_base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ResponseLimit  int           `yaml:"response_limit"`

	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	TLS       TLSConfig       `yaml:"tls"`
}

// MetricsConfig configures the dedicated metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// RateLimitConfig configures per-IP limiting of the MCP endpoint.
type RateLimitConfig struct {
	// PerSecond of zero disables rate limiting.
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	TrustProxy bool    `yaml:"trust_proxy"`
}

// TLSConfig enables HTTPS when both files are set.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Transport:      TransportStdio,
		HTTPAddr:       ":8080",
		APIBaseURL:     marvin.DefaultBaseURL,
		RequestTimeout: marvin.DefaultTimeout,
		ResponseLimit:  render.DefaultLimit,
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		RateLimit: RateLimitConfig{
			PerSecond: 10,
			Burst:     20,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse returns the defaults overlaid with YAML data. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables read through lookup.
// Pass os.LookupEnv in production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("MARVIN_API_BASE_URL"); ok && v != "" {
		c.APIBaseURL = v
	}
	if v, ok := lookup("MARVIN_REQUEST_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MARVIN_REQUEST_TIMEOUT %q: %w", v, err)
		}
		c.RequestTimeout = d
	}
	if v, ok := lookup("MARVIN_RESPONSE_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MARVIN_RESPONSE_LIMIT %q: %w", v, err)
		}
		c.ResponseLimit = n
	}
	if v, ok := lookup("METRICS_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		c.Metrics.Enabled = enabled
	}
	if v, ok := lookup("METRICS_ADDR"); ok && v != "" {
		c.Metrics.Addr = v
	}
	if v, ok := lookup("TLS_CERT_FILE"); ok && v != "" {
		c.TLS.CertFile = v
	}
	if v, ok := lookup("TLS_KEY_FILE"); ok && v != "" {
		c.TLS.KeyFile = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", c.Transport)
	}
	if c.ResponseLimit < MinResponseLimit {
		return fmt.Errorf("response limit must be at least %d characters, got %d", MinResponseLimit, c.ResponseLimit)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.RateLimit.PerSecond < 0 {
		return fmt.Errorf("rate limit must not be negative, got %v", c.RateLimit.PerSecond)
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return errors.New("both TLS certificate and key files must be provided together")
	}
	return nil
}
