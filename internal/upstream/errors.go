package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the backend's status code and message through to callers so
// handlers can relay them without flattening everything into a 502.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream: %d %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is an upstream 401.
func IsUnauthorized(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.StatusCode == http.StatusUnauthorized
}

// IsForbidden reports whether err is an upstream 403.
func IsForbidden(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.StatusCode == http.StatusForbidden
}

// StatusOf returns the upstream status code, or 502 when err is not an
// upstream response error (network failure, bad body).
func StatusOf(err error) (int, string) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.StatusCode, ue.Message
	}
	return http.StatusBadGateway, "upstream unavailable"
}
