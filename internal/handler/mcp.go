// MCP transport handler for the switch service using the official MCP Go SDK.
// Exposes the switch lifecycle as MCP tools.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"payment-switch/internal/host"
	"payment-switch/internal/model"
	"payment-switch/internal/switching"
)

// === MCP Tool Input Types ===
// meta carries request metadata that REST sends as headers:
// - Switch-Host header → meta["switch-host"]

// StartSwitchInput is the input schema for the start_switch tool.
type StartSwitchInput struct {
	Meta    map[string]any `json:"meta" jsonschema:"request metadata; switch-host carries the Switch-Host header value,required"`
	Method  string         `json:"method" jsonschema:"payment method: paypal, venmo, sepa_direct_debit or local_payment,required"`
	Request map[string]any `json:"request" jsonschema:"method-specific start request,required"`
}

// ResolveSwitchInput is the input schema for the resolve_switch tool.
type ResolveSwitchInput struct {
	Method         string            `json:"method" jsonschema:"payment method the switch was started with,required"`
	PendingRequest string            `json:"pending_request" jsonschema:"pending_request returned by start_switch,required"`
	ReturnURL      string            `json:"return_url" jsonschema:"deep link the device was opened with; empty if none arrived,required"`
	Extras         map[string]string `json:"extras,omitempty" jsonschema:"extra values delivered with an app return"`
}

// CompleteSwitchInput is the input schema for the complete_switch tool.
type CompleteSwitchInput struct {
	Method  string         `json:"method" jsonschema:"payment method,required"`
	Details map[string]any `json:"details" jsonschema:"success details from resolve_switch or an immediate start_switch result,required"`
}

// ListMethodsInput is the input schema for the list_methods tool.
type ListMethodsInput struct{}

// NewMCPServer creates an MCP server with switch tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "payment-switch",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Payment switch - start, resolve and complete browser or app switches " +
				"for PayPal, Venmo, SEPA Direct Debit and local payments.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_switch",
		Description: "Start a payment switch. Returns a pending_request to keep and a handoff telling the device what to open.",
	}, h.mcpStartSwitch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_switch",
		Description: "Resolve a pending request against the deep link the device returned with.",
	}, h.mcpResolveSwitch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_switch",
		Description: "Exchange a successful switch result for a payment method nonce.",
	}, h.mcpCompleteSwitch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_methods",
		Description: "List the payment methods enabled on this service.",
	}, h.mcpListMethods)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===
// Start, resolve and complete return untyped output: their payloads carry
// method-specific JSON that no fixed output schema describes.

func (h *Handler) mcpStartSwitch(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input StartSwitchInput,
) (*mcp.CallToolResult, any, error) {
	header := host.ExtractMCPHeader(input.Meta)
	if header == "" {
		return nil, nil, fmt.Errorf("%s: meta.switch-host is required to start a switch", host.HostRequired)
	}
	profile, err := host.ParseHeader(header)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %v", host.HostRequired, err)
	}

	raw, err := json.Marshal(input.Request)
	if err != nil {
		return nil, nil, fmt.Errorf("request: %v", err)
	}

	resp, err := h.start(ctx, input.Method, profile, raw)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, resp, nil
}

func (h *Handler) mcpResolveSwitch(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ResolveSwitchInput,
) (*mcp.CallToolResult, any, error) {
	resp, err := h.resolve(ctx, input.Method, &model.ResolveRequest{
		PendingRequest: input.PendingRequest,
		ReturnURL:      input.ReturnURL,
		Extras:         extrasMetadata(input.Extras),
	})
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, resp, nil
}

func (h *Handler) mcpCompleteSwitch(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CompleteSwitchInput,
) (*mcp.CallToolResult, any, error) {
	raw, err := json.Marshal(input.Details)
	if err != nil {
		return nil, nil, fmt.Errorf("details: %v", err)
	}

	resp, err := h.complete(ctx, input.Method, raw)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, resp, nil
}

func (h *Handler) mcpListMethods(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListMethodsInput,
) (*mcp.CallToolResult, *methodsResponse, error) {
	return nil, h.methodList(), nil
}

// mcpError converts method errors to MCP-friendly errors.
// APIError messages are client-safe; anything else is logged and hidden.
func (h *Handler) mcpError(err error) error {
	apiErr := h.apiError(err)
	return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
}

// extrasMetadata orders MCP extras by key; JSON objects decoded into a Go
// map have lost their original order.
func extrasMetadata(extras map[string]string) switching.Metadata {
	keys := make([]string, 0, len(extras))
	for k := range extras {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var md switching.Metadata
	for _, k := range keys {
		md.Set(k, extras[k])
	}
	return md
}
