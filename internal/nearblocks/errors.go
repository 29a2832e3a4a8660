package nearblocks

import (
	"fmt"
	"net/http"
)

// APIError is a non-2xx NearBlocks response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nearblocks api error: status %d: %s", e.StatusCode, e.Body)
}

// Retryable is true for rate limiting and server-side failures.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// DecodeError is a response body that does not match the page shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode nearblocks response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Retryable() bool {
	return false
}
