// Package adforge provides a Go client for the campaign pipeline API.
package adforge

import (
	"errors"
	"fmt"
)

// Error represents an error from the API with the HTTP status code and the
// server's error message.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	// Pending lists incomplete prerequisites when Code is AGENT_NOT_READY.
	Pending []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("adforge: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == 404
	}
	return false
}

// IsUnauthorized returns true if the error is a 401.
func IsUnauthorized(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == 401
	}
	return false
}

// IsNotReady returns true if the error is an AGENT_NOT_READY rejection:
// the agent's prerequisites have not all completed.
func IsNotReady(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == "AGENT_NOT_READY"
	}
	return false
}

// IsGatewayError returns true if the generation gateway failed (502).
func IsGatewayError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == 502
	}
	return false
}

// IsNotConfigured returns true if the server has no gateway URL configured (503).
func IsNotConfigured(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == "GATEWAY_NOT_CONFIGURED"
	}
	return false
}

// IsRateLimited returns true if the error is a 429 (Too Many Requests).
func IsRateLimited(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == 429
	}
	return false
}
