package adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"payment-switch/internal/model"
	"payment-switch/internal/switching"
)

// Helpers shared by Method implementations. They keep the JSON and error
// conventions of the start/resolve/complete calls identical across methods.

// DecodeRequest decodes a method request. Unknown fields are rejected so a
// misspelled option never silently falls back to a default.
func DecodeRequest(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return model.NewValidationError("body", "request body is required")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return model.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return nil
}

// StartResponse converts a launch outcome into the start response.
func StartResponse(kind model.MethodKind, pending switching.PendingRequest) (*model.StartResponse, error) {
	switch p := pending.(type) {
	case *switching.Started:
		stored, err := p.StorableString()
		if err != nil {
			return nil, model.NewInternalError(fmt.Errorf("storing pending request: %w", err))
		}
		return &model.StartResponse{
			Status:         model.SwitchStarted,
			Method:         kind,
			PendingRequest: stored,
		}, nil
	case *switching.LaunchFailure:
		return &model.StartResponse{
			Status: model.SwitchLaunchFailed,
			Method: kind,
			Error:  model.NewLaunchError(p.Err),
		}, nil
	default:
		return nil, model.NewInternalError(fmt.Errorf("unexpected pending request %T", pending))
	}
}

// ImmediateResponse is the start response for a method that completed
// without a switch. result is the success payload.
func ImmediateResponse(kind model.MethodKind, result any) (*model.StartResponse, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	return &model.StartResponse{Status: model.SwitchImmediate, Method: kind, Result: raw}, nil
}

// ParseSignal builds the return signal from a resolve request. A blank
// return_url yields a signal without URL, which resolves to no result.
func ParseSignal(req *model.ResolveRequest) (switching.ReturnSignal, error) {
	if req.PendingRequest == "" {
		return switching.ReturnSignal{}, model.NewValidationError("pending_request", "is required")
	}
	sig, err := switching.ParseReturnSignal(req.ReturnURL, req.Extras)
	if err != nil {
		return switching.ReturnSignal{}, model.NewValidationError("return_url", err.Error())
	}
	return sig, nil
}

// FinishError maps a coordinator Finish error to an API error.
func FinishError(err error) error {
	if errors.Is(err, switching.ErrMalformedPending) {
		return model.NewMalformedPendingError(err)
	}
	return model.NewInternalError(err)
}

// ResolveResponse builds the resolve response. details is marshaled when non-nil.
func ResolveResponse(kind model.MethodKind, result model.ResultKind, details any, cause error) (*model.ResolveResponse, error) {
	resp := &model.ResolveResponse{Method: kind, Result: result}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return nil, model.NewInternalError(err)
		}
		resp.Details = raw
	}
	if cause != nil {
		resp.Error = cause.Error()
	}
	return resp, nil
}
