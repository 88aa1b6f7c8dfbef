package ratelimit

import (
	"strings"
)

// unlimited marks endpoints that are never rate limited.
var unlimited = &EndpointConfig{Limit: 0}

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns the matching EndpointConfig or nil if no match is found.
// Path matching supports prefix matching (e.g., "/ws/" matches "/ws/{client_id}").
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	// Probes and scrapes are unlimited
	if method == "GET" && (path == "/health" || path == "/metrics") {
		return unlimited
	}

	// Try exact match first
	for i := range configs {
		config := &configs[i]
		if config.Path == path && config.Method == method {
			return config
		}
	}

	// Try prefix match (for paths ending with "/")
	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Path, "/") && strings.HasPrefix(path, config.Path) {
			return config
		}
	}

	return nil
}
