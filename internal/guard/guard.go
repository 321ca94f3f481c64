// Package guard classifies navigations before any page logic runs. It is a pure
// presence check on the backend session cookie: it never validates the cookie's
// signature or expiry, which the backend re-checks on every data fetch.
package guard

import "strings"

// Action is the outcome kind of a guard evaluation.
type Action int

const (
	// ActionAllow lets the request proceed unmodified.
	ActionAllow Action = iota
	// ActionRedirect sends the browser to Decision.Target.
	ActionRedirect
)

// Well-known page paths the guard routes between.
const (
	PathLogin       = "/login"
	PathRegister    = "/register"
	PathDashboard   = "/dashboard"
	PathVerifyEmail = "/verify-email"
)

// Decision is the result of evaluating one request.
type Decision struct {
	Action Action
	Target string
}

// Allow reports whether the request may proceed.
func (d Decision) Allow() bool { return d.Action == ActionAllow }

// Evaluate classifies a request from its path and whether the session cookie is
// present. Every request is classified independently; no state is carried
// between evaluations.
func Evaluate(path string, cookiePresent bool) Decision {
	if cookiePresent && isAuthPage(path) {
		return Decision{Action: ActionRedirect, Target: PathDashboard}
	}
	if !cookiePresent && isProtectedPage(path) {
		return Decision{Action: ActionRedirect, Target: PathLogin}
	}
	return Decision{Action: ActionAllow}
}

// isAuthPage reports whether path is a page only shown to logged-out visitors.
func isAuthPage(path string) bool {
	return path == PathLogin || path == PathRegister
}

// isProtectedPage reports whether path requires a session cookie: the dashboard
// subtree and the email-verification page.
func isProtectedPage(path string) bool {
	if path == PathDashboard || strings.HasPrefix(path, PathDashboard+"/") {
		return true
	}
	return path == PathVerifyEmail
}
