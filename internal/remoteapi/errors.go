package remoteapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates the remote API has no such resource
var ErrNotFound = errors.New("remote resource not found")

// StatusError represents an unexpected HTTP status from the remote API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("remote API error: HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("remote API error: HTTP %d", e.StatusCode)
}

// Transient reports whether retrying later may succeed.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}
