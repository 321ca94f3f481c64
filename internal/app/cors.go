package app

import (
	"net/url"
	"strings"
)

// originAllowed reports whether a request origin matches any of the configured
// patterns. Patterns are compared against the origin's host[:port] and may use
// a "*." prefix to cover subdomains or a ":*" suffix to cover any port.
func originAllowed(patterns []string, origin string) bool {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}
	for _, pattern := range patterns {
		switch {
		case pattern == host:
			return true
		case strings.HasPrefix(pattern, "*.") && strings.HasSuffix(host, pattern[1:]):
			return true
		case strings.HasSuffix(pattern, ":*") && strings.HasPrefix(host, pattern[:len(pattern)-1]):
			return true
		}
	}
	return false
}
