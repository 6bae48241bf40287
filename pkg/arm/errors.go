package arm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrNotConnected is returned when a command is issued on a closed
// driver.
var ErrNotConnected = errors.New("arm: not connected")

// APIError represents an error response from the controller daemon.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Endpoint is the daemon endpoint that failed.
	Endpoint string

	// Message is the error message from the daemon, if any.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("arm: daemon error %d on %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("arm: daemon error %d on %s", e.StatusCode, e.Endpoint)
}

// IsServerError returns true for daemon-side errors (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsTimeout reports whether err is a timeout or cancellation on the
// network path to the daemon. The loop treats these as a skipped cycle,
// not a fault.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
