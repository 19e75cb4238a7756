package adapter

import (
	"context"
	"encoding/json"

	"payment-switch/internal/model"
	"payment-switch/internal/switching"
)

// Mock implements Method for testing.
// Each method can be configured via function fields.
type Mock struct {
	KindValue    model.MethodKind
	StartFunc    func(ctx context.Context, h switching.Host, req json.RawMessage) (*model.StartResponse, error)
	ResolveFunc  func(ctx context.Context, req *model.ResolveRequest) (*model.ResolveResponse, error)
	CompleteFunc func(ctx context.Context, details json.RawMessage) (*model.CompleteResponse, error)
}

// Kind returns KindValue, defaulting to paypal.
func (m *Mock) Kind() model.MethodKind {
	if m.KindValue == "" {
		return model.MethodPayPal
	}
	return m.KindValue
}

// Start calls the configured StartFunc or returns an error.
func (m *Mock) Start(ctx context.Context, h switching.Host, req json.RawMessage) (*model.StartResponse, error) {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, h, req)
	}
	return nil, model.NewInternalError(nil)
}

// Resolve calls the configured ResolveFunc or returns a no-result response.
func (m *Mock) Resolve(ctx context.Context, req *model.ResolveRequest) (*model.ResolveResponse, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, req)
	}
	return &model.ResolveResponse{Method: m.Kind(), Result: model.ResultNoResult}, nil
}

// Complete calls the configured CompleteFunc or returns an error.
func (m *Mock) Complete(ctx context.Context, details json.RawMessage) (*model.CompleteResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, details)
	}
	return nil, model.NewInternalError(nil)
}
