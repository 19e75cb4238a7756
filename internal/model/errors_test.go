package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "without wrapped error",
			err:  &APIError{Code: "LAUNCH_FAILED", Message: "no browser"},
			want: "LAUNCH_FAILED: no browser",
		},
		{
			name: "with wrapped error",
			err:  &APIError{Code: "UPSTREAM_ERROR", Message: "gateway request failed", Err: errors.New("timeout")},
			want: "UPSTREAM_ERROR: gateway request failed (timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	cause := errors.New("no application can handle this destination")

	tests := []struct {
		name       string
		err        *APIError
		code       string
		status     int
		sentinel   error
		wantCauser bool
	}{
		{"NotFound", NewNotFoundError("switch"), "NOT_FOUND", 404, ErrNotFound, false},
		{"Validation", NewValidationError("amount", "must be positive"), "VALIDATION_ERROR", 400, ErrInvalidRequest, false},
		{"Unauthorized", NewUnauthorizedError("bad key"), "UNAUTHORIZED", 401, ErrUnauthorized, false},
		{"Upstream", NewUpstreamError("Braintree", cause), "UPSTREAM_ERROR", 502, ErrUpstreamError, false},
		{"RateLimit", NewRateLimitError("Braintree"), "RATE_LIMITED", 429, ErrRateLimited, false},
		{"MethodDisabled", NewMethodDisabledError("venmo"), "METHOD_NOT_ENABLED", 404, ErrMethodDisabled, false},
		{"Launch", NewLaunchError(cause), "LAUNCH_FAILED", 422, ErrLaunchFailed, true},
		{"MalformedPending", NewMalformedPendingError(cause), "MALFORMED_PENDING_REQUEST", 400, ErrPendingRejected, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.status)
			}
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v) = false, want true", tt.sentinel)
			}
			if tt.wantCauser && !errors.Is(tt.err, cause) {
				t.Error("cause should stay reachable through errors.Is")
			}
		})
	}
}

func TestNewInternalError_PreservesCause(t *testing.T) {
	underlying := errors.New("nil map write")
	err := NewInternalError(underlying)
	if err.Err != underlying {
		t.Error("wrapped error should be preserved")
	}
	if err.Message != "an internal error occurred" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestAPIError_As(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewMethodDisabledError("sepa"))
	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As should find *APIError in wrapped error")
	}
	if apiErr.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"api error", NewLaunchError(errors.New("no browser")), 422},
		{"wrapped api error", fmt.Errorf("paypal: %w", NewRateLimitError("gateway")), 429},
		{"plain error", errors.New("boom"), 500},
		{"zero status", &APIError{Code: "X"}, 500},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("%s: StatusOf() = %d, want %d", tt.name, got, tt.want)
		}
	}
}
