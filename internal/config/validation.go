package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// validateConfig performs comprehensive validation of configuration values
func validateConfig(config *Config) error {
	var validationErrors []string

	switch config.ContentFiltering.Mode {
	case "substring", "grammar":
		// Valid
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("content_filtering.mode must be one of: substring, grammar (got: %s)", config.ContentFiltering.Mode))
	}

	seen := make(map[string]bool, len(config.ContentFiltering.Sources))
	for i, src := range config.ContentFiltering.Sources {
		if src.Name == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("content_filtering.sources[%d].name cannot be empty", i))
		} else if strings.ContainsAny(src.Name, `/\`) {
			validationErrors = append(validationErrors, fmt.Sprintf("content_filtering.sources[%d].name must not contain path separators", i))
		} else if seen[src.Name] {
			validationErrors = append(validationErrors, fmt.Sprintf("content_filtering.sources[%d].name %q is duplicated", i, src.Name))
		}
		seen[src.Name] = true

		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("content_filtering.sources[%d].url must be an http(s) URL (got: %s)", i, src.URL))
		}
	}

	for i, path := range config.ContentFiltering.Lists {
		if path == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("content_filtering.lists[%d] cannot be empty", i))
		}
	}

	if _, _, err := net.SplitHostPort(config.Proxy.Listen); err != nil {
		validationErrors = append(validationErrors, fmt.Sprintf("proxy.listen must be host:port (got: %s)", config.Proxy.Listen))
	}
	if config.Proxy.MetricsListen != "" {
		if _, _, err := net.SplitHostPort(config.Proxy.MetricsListen); err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("proxy.metrics_listen must be host:port or empty (got: %s)", config.Proxy.MetricsListen))
		}
	}
	if config.Proxy.DecisionCacheSize < 0 {
		validationErrors = append(validationErrors, "proxy.decision_cache_size must be non-negative")
	}
	if config.Proxy.DialTimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "proxy.dial_timeout_seconds must be positive")
	}

	switch config.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
		// Valid
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("logging.level must be one of: trace, debug, info, warn, error (got: %s)", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "console", "json", "text":
		// Valid
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("logging.format must be one of: console, json, text (got: %s)", config.Logging.Format))
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(validationErrors, "\n  - "))
	}
	return nil
}
