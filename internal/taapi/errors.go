package taapi

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorClass partitions provider failures. Only ClassRateLimited is retried,
// once, at the fetcher call site.
type ErrorClass string

const (
	ClassTimeout     ErrorClass = "TIMEOUT"
	ClassRateLimited ErrorClass = "RATE_LIMITED"
	ClassBadRequest  ErrorClass = "BAD_REQUEST"
	ClassNetwork     ErrorClass = "NETWORK"
)

// ProviderError is a classified failure from the indicator provider
type ProviderError struct {
	Class      ErrorClass
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider error (%s, HTTP %d): %s", e.Class, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Class, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a rate-limit rejection from the provider
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Class == ClassRateLimited
}

// IsBadRequest reports whether err is a malformed-request rejection
func IsBadRequest(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Class == ClassBadRequest
}

// classifyHTTPStatus maps a non-200 status to a provider error
func classifyHTTPStatus(status int, body string) *ProviderError {
	switch status {
	case http.StatusTooManyRequests:
		return &ProviderError{Class: ClassRateLimited, StatusCode: status, Message: body}
	case http.StatusBadRequest:
		return &ProviderError{Class: ClassBadRequest, StatusCode: status, Message: body}
	default:
		return &ProviderError{Class: ClassNetwork, StatusCode: status, Message: body}
	}
}

// classifyTransportError maps a transport-level failure to a provider error
func classifyTransportError(err error) *ProviderError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderError{Class: ClassTimeout, Message: "request timed out", Err: err}
	}
	return &ProviderError{Class: ClassNetwork, Message: err.Error(), Err: err}
}
