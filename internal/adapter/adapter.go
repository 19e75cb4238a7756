// Package adapter defines the interface payment methods expose to the
// HTTP and MCP surfaces, and the registry the server routes through.
package adapter

import (
	"context"
	"encoding/json"

	"payment-switch/internal/model"
	"payment-switch/internal/switching"
)

// Method is one payment method that completes through a browser or app switch.
// Each method (PayPal, Venmo, ...) provides its own implementation.
//
// Requests and results cross this boundary as JSON so that the server does
// not depend on method-specific types.
type Method interface {
	// Kind returns the registry key for this method.
	Kind() model.MethodKind

	// Start creates the gateway resource and launches the switch on h.
	// Launch failures are reported in the response with status launch_failed;
	// the error is reserved for invalid requests and gateway failures.
	Start(ctx context.Context, h switching.Host, req json.RawMessage) (*model.StartResponse, error)

	// Resolve restores the pending request and classifies the return.
	// A pending request that cannot be parsed is a MALFORMED_PENDING_REQUEST error.
	Resolve(ctx context.Context, req *model.ResolveRequest) (*model.ResolveResponse, error)

	// Complete tokenizes a success result (the details from Resolve) into a nonce.
	Complete(ctx context.Context, details json.RawMessage) (*model.CompleteResponse, error)
}

