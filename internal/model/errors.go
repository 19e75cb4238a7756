package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors wrapped by every APIError.
// Use errors.Is() to check against these.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUpstreamError   = errors.New("upstream error")
	ErrRateLimited     = errors.New("rate limited")
	ErrMethodDisabled  = errors.New("payment method disabled")
	ErrLaunchFailed    = errors.New("switch launch failed")
	ErrPendingRejected = errors.New("pending request rejected")
)

// APIError is the error shape returned by the switch endpoints and MCP tools.
// Code is stable for clients; Message is for humans.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a 404 error for gateway resources that do not exist,
// such as an unknown merchant account.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// NewValidationError creates a 400 error for invalid input.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: http.StatusBadRequest,
		Err:        ErrInvalidRequest,
	}
}

// NewUnauthorizedError creates a 401 error for a tokenization key the gateway rejects.
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:       "UNAUTHORIZED",
		Message:    reason,
		StatusCode: http.StatusUnauthorized,
		Err:        ErrUnauthorized,
	}
}

// NewUpstreamError creates a 502 error for gateway failures.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       "UPSTREAM_ERROR",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: http.StatusBadGateway,
		Err:        fmt.Errorf("%w: %v", ErrUpstreamError, err),
	}
}

// NewInternalError creates a 500 error for unexpected failures.
// The cause is logged by the handler and never sent to clients.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewRateLimitError creates a 429 error when the gateway throttles this merchant.
func NewRateLimitError(service string) *APIError {
	return &APIError{
		Code:       "RATE_LIMITED",
		Message:    fmt.Sprintf("%s rate limit exceeded, please retry later", service),
		StatusCode: http.StatusTooManyRequests,
		Err:        ErrRateLimited,
	}
}

// NewMethodDisabledError creates a 404 error for methods not enabled for this merchant.
func NewMethodDisabledError(method string) *APIError {
	return &APIError{
		Code:       "METHOD_NOT_ENABLED",
		Message:    fmt.Sprintf("payment method %s is not enabled", method),
		StatusCode: http.StatusNotFound,
		Err:        ErrMethodDisabled,
	}
}

// NewLaunchError creates a 422 error for switches the device cannot perform.
// The cause is kept so callers can errors.Is against switching sentinels.
func NewLaunchError(cause error) *APIError {
	return &APIError{
		Code:       "LAUNCH_FAILED",
		Message:    cause.Error(),
		StatusCode: http.StatusUnprocessableEntity,
		Err:        fmt.Errorf("%w: %w", ErrLaunchFailed, cause),
	}
}

// NewMalformedPendingError creates a 400 error for corrupt or foreign pending request strings.
func NewMalformedPendingError(cause error) *APIError {
	return &APIError{
		Code:       "MALFORMED_PENDING_REQUEST",
		Message:    "pending_request could not be parsed",
		StatusCode: http.StatusBadRequest,
		Err:        fmt.Errorf("%w: %w", ErrPendingRejected, cause),
	}
}

// StatusOf returns the HTTP status for err: the APIError status when err
// wraps one, 500 otherwise.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		return apiErr.StatusCode
	}
	return http.StatusInternalServerError
}
