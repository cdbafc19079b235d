package models

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationError means no credential could be resolved for a call.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// ValidationError means the caller's input was unusable.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError is a non-200 answer from the vision endpoint.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request failed with status %d: %s", e.StatusCode, e.Message)
}

// TransportError means the vision endpoint could not be reached or the
// response could not be read.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to reach vision endpoint: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the underlying failure was a deadline.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// UpstreamProtocolError is a 200 answer whose body does not have the expected shape.
type UpstreamProtocolError struct {
	Reason string
}

func (e *UpstreamProtocolError) Error() string {
	return "unexpected upstream response: " + e.Reason
}

// HTTPStatus maps a pipeline error to the status reported at the HTTP boundary.
func HTTPStatus(err error) int {
	var (
		configErr     *ConfigurationError
		validationErr *ValidationError
		upstreamErr   *UpstreamError
		transportErr  *TransportError
		protocolErr   *UpstreamProtocolError
	)

	switch {
	case errors.As(err, &configErr), errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &transportErr):
		if transportErr.Timeout() {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.As(err, &upstreamErr), errors.As(err, &protocolErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Outcome labels an error for metrics and events.
func Outcome(err error) string {
	var (
		configErr     *ConfigurationError
		validationErr *ValidationError
		upstreamErr   *UpstreamError
		transportErr  *TransportError
		protocolErr   *UpstreamProtocolError
	)

	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &configErr):
		return OutcomeConfigurationError
	case errors.As(err, &validationErr):
		return OutcomeValidationError
	case errors.As(err, &upstreamErr):
		return OutcomeUpstreamError
	case errors.As(err, &transportErr):
		return OutcomeTransportError
	case errors.As(err, &protocolErr):
		return OutcomeProtocolError
	default:
		return OutcomeInternalError
	}
}
