package ratelimit

import (
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        `koanf:"path"`   // Endpoint path pattern (supports prefix matching)
	Method string        `koanf:"method"` // HTTP method (GET, POST, etc.)
	Limit  int           `koanf:"limit"`  // Maximum requests per window
	Window time.Duration `koanf:"window"` // Time window
	Burst  int           `koanf:"burst"`  // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool             `koanf:"enabled"`
	DefaultLimit    int              `koanf:"default_limit" validate:"gte=0"`
	DefaultWindow   time.Duration    `koanf:"default_window" validate:"gte=0"`
	CleanupInterval time.Duration    `koanf:"cleanup_interval" validate:"gte=0"`
	IdleTTL         time.Duration    `koanf:"idle_ttl" validate:"gte=0"`
	Whitelist       []string         `koanf:"whitelist"`
	Blacklist       []string         `koanf:"blacklist"`
	Endpoints       []EndpointConfig `koanf:"endpoints"`
}

// DefaultConfig returns limits suited to a single interview deployment.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		DefaultLimit:    300,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Endpoints:       DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Setup parses a PDF and triggers a generation call
		{Path: "/setup-interview/", Method: "POST", Limit: 10, Window: time.Hour, Burst: 3},
		// Each connect creates a session and speaks a greeting
		{Path: "/ws/", Method: "GET", Limit: 30, Window: time.Minute, Burst: 5},
		// /health and /metrics are unlimited, see MatchEndpoint
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultLimit == 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.DefaultWindow <= 0 {
		c.DefaultWindow = d.DefaultWindow
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = d.IdleTTL
	}
	return c
}

// toSet converts an IP list into a lookup set.
func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, ip := range list {
		if ip != "" {
			set[ip] = true
		}
	}
	return set
}
