package adapter

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Callers should use errors.Is.
var (
	ErrNoContent       = errors.New("provider response contains no choices")
	ErrEmptyResponse   = errors.New("response is empty after removing reasoning blocks")
	ErrNoPreparedInput = errors.New("request has no prepared input")
	ErrNoPrompt        = errors.New("no prompt source")
	errRecovered       = errors.New("recovered panic")
)

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d: %s", e.StatusCode, e.Message)
}

// IsAuthentication reports whether the provider rejected the credential.
func (e *APIError) IsAuthentication() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// DecodeError means the provider answered 2xx with a body that is not the expected JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError wraps connection-level failures (refused, DNS, timeout).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// OptionError reports a caller option that cannot be coerced to its expected type.
type OptionError struct {
	Key string
	Err error
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("option %q: %v", e.Key, e.Err)
}

func (e *OptionError) Unwrap() error { return e.Err }
