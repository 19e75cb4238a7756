package sepa

import (
	"context"
	"encoding/json"

	"payment-switch/internal/adapter"
	"payment-switch/internal/model"
	"payment-switch/internal/switching"
)

// Method exposes a Client through adapter.Method.
type Method struct {
	client *Client
}

// NewMethod wraps c for the registry.
func NewMethod(c *Client) *Method {
	return &Method{client: c}
}

func (m *Method) Kind() model.MethodKind { return model.MethodSEPA }

// Start reports an already approved mandate with status immediate and the
// success details in result; complete it like a resolved success.
func (m *Method) Start(ctx context.Context, h switching.Host, raw json.RawMessage) (*model.StartResponse, error) {
	var req Request
	if err := adapter.DecodeRequest(raw, &req); err != nil {
		return nil, err
	}
	out, err := m.client.Start(ctx, h, &req)
	if err != nil {
		return nil, err
	}
	if out.Approved != nil {
		return adapter.ImmediateResponse(m.Kind(), out.Approved)
	}
	return adapter.StartResponse(m.Kind(), out.Pending)
}

func (m *Method) Resolve(_ context.Context, req *model.ResolveRequest) (*model.ResolveResponse, error) {
	sig, err := adapter.ParseSignal(req)
	if err != nil {
		return nil, err
	}
	result, err := m.client.Finish(req.PendingRequest, sig)
	if err != nil {
		return nil, adapter.FinishError(err)
	}

	switch r := result.(type) {
	case *Success:
		return adapter.ResolveResponse(m.Kind(), model.ResultSuccess, r, nil)
	case *Cancelled:
		return adapter.ResolveResponse(m.Kind(), model.ResultCancel, nil, nil)
	case *Failure:
		return adapter.ResolveResponse(m.Kind(), model.ResultFailure, nil, r.Err)
	default:
		return adapter.ResolveResponse(m.Kind(), model.ResultNoResult, nil, nil)
	}
}

func (m *Method) Complete(ctx context.Context, details json.RawMessage) (*model.CompleteResponse, error) {
	var s Success
	if err := adapter.DecodeRequest(details, &s); err != nil {
		return nil, err
	}
	nonce, err := m.client.Complete(ctx, &s)
	if err != nil {
		return nil, err
	}
	return &model.CompleteResponse{Method: m.Kind(), Nonce: *nonce}, nil
}
