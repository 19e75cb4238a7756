// Package handler provides the HTTP and MCP surfaces of the switch service.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"payment-switch/internal/adapter"
	"payment-switch/internal/model"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	methods *adapter.Registry
	logger  *slog.Logger
}

// New creates a Handler routing to the enabled methods in registry.
func New(registry *adapter.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		methods: registry,
		logger:  logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Discovery
	mux.HandleFunc("GET /methods", h.handleMethods)

	// REST transport - switch lifecycle
	mux.HandleFunc("POST /switches/{method}", h.handleStart)
	mux.HandleFunc("POST /switches/{method}/resolve", h.handleResolve)
	mux.HandleFunc("POST /switches/{method}/complete", h.handleComplete)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	apiErr := h.apiError(err)
	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// apiError finds the APIError in err's chain, wrapping anything else as an
// internal error. Causes of 5xx errors are logged, never returned.
func (h *Handler) apiError(err error) *model.APIError {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = model.NewInternalError(err)
	}
	if model.StatusOf(apiErr) >= http.StatusInternalServerError {
		cause := err
		if apiErr.Err != nil {
			cause = apiErr.Err
		}
		h.logger.Error("request failed",
			slog.String("code", apiErr.Code),
			slog.String("error", cause.Error()))
	}
	return apiErr
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// readBody returns the raw request body for methods that decode it themselves.
func readBody(r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, MaxRequestBodySize))
	if err != nil {
		return nil, model.NewValidationError("body", "request body too large or unreadable")
	}
	return body, nil
}
