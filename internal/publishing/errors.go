package publishing

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the publishing API.
type APIError struct {
	Status  int
	Message string
	// Body is the raw response body, kept for plain-text errors
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("publishing API returned status %d: %s", e.Status, e.Message)
}

// TransportError is a failure to get any HTTP answer at all
// (DNS, refused or reset connections, timeouts).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("publishing API %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether repeating the same request could succeed.
// Transport failures and 5xx/429 answers are retryable; other 4xx answers
// (duplicate slug, bad credential) reproduce identically and are not.
func IsRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError || apiErr.Status == http.StatusTooManyRequests
	}

	return false
}
