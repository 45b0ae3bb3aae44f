// Package url normalizes user-typed request targets for the CLI.
package url

import (
	"net/url"
	"strings"
)

var schemes = []string{"http://", "https://", "ws://", "wss://", "file://", "data:", "about:"}

// Normalize adds an https:// prefix to host-like inputs such as
// "ads.example.com/banner.js". Inputs with a known scheme, or that don't
// look like a host, are returned unchanged.
func Normalize(input string) string {
	input = strings.TrimSpace(input)
	if input == "" || HasScheme(input) {
		return input
	}

	// Contains a dot and no spaces = likely a host
	if strings.Contains(input, ".") && !strings.Contains(input, " ") {
		return "https://" + input
	}
	return input
}

// HasScheme reports whether input starts with a scheme the filter sees
// in practice.
func HasScheme(input string) bool {
	lower := strings.ToLower(input)
	for _, s := range schemes {
		if strings.HasPrefix(lower, s) {
			return true
		}
	}
	return false
}

// Host extracts the host of a URL, without port and "www." prefix.
func Host(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
