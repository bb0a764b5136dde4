package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrStatus is matched by every StatusError.
	ErrStatus = errors.New("unexpected HTTP status")

	// ErrInvalidProxy is returned when the SOCKS5 dialer cannot be created.
	ErrInvalidProxy = errors.New("invalid proxy address")
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is makes errors.Is(err, ErrStatus) true for any StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Retryable reports whether the status is worth another attempt:
// 429 Too Many Requests and the transient 5xx codes.
func (e *StatusError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
