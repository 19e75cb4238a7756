package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"payment-switch/internal/adapter"
	"payment-switch/internal/host"
	"payment-switch/internal/model"
)

// handleStart creates the gateway resource and returns the device handoff.
// POST /switches/{method}
func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, ok := host.FromContext(ctx)
	if !ok {
		h.writeError(w, model.NewValidationError(host.HeaderName, "header is required to start a switch"))
		return
	}
	raw, err := readBody(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp, err := h.start(ctx, r.PathValue("method"), profile, raw)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, startStatus(resp.Status), resp)
}

// handleResolve classifies a return against its pending request.
// POST /switches/{method}/resolve
func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req model.ResolveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	resp, err := h.resolve(r.Context(), r.PathValue("method"), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleComplete tokenizes a success result.
// POST /switches/{method}/complete
func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp, err := h.complete(r.Context(), r.PathValue("method"), raw)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// startStatus maps a start outcome to its HTTP status.
func startStatus(s model.SwitchStatus) int {
	switch s {
	case model.SwitchStarted:
		return http.StatusCreated
	case model.SwitchLaunchFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}

// === Operations shared by REST and MCP ===

func (h *Handler) method(name string) (adapter.Method, error) {
	m, ok := h.methods.Get(name)
	if !ok {
		return nil, model.NewMethodDisabledError(name)
	}
	return m, nil
}

func (h *Handler) start(ctx context.Context, name string, profile host.Profile, raw json.RawMessage) (*model.StartResponse, error) {
	m, err := h.method(name)
	if err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "starting switch",
		slog.String("method", string(m.Kind())),
		slog.Bool("browser", profile.Browser),
		slog.Int("apps", len(profile.Apps)),
	)

	relay := host.NewRelay(profile)
	resp, err := m.Start(ctx, relay, raw)
	if err != nil {
		return nil, err
	}
	if handoff := relay.Handoff(); handoff != nil && resp.Status == model.SwitchStarted {
		resp.Handoff = handoff
	}

	if resp.Status == model.SwitchLaunchFailed && resp.Error != nil {
		h.logger.WarnContext(ctx, "switch launch failed",
			slog.String("method", string(m.Kind())),
			slog.String("reason", resp.Error.Message),
		)
	}
	return resp, nil
}

func (h *Handler) resolve(ctx context.Context, name string, req *model.ResolveRequest) (*model.ResolveResponse, error) {
	m, err := h.method(name)
	if err != nil {
		return nil, err
	}

	resp, err := m.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	h.logger.InfoContext(ctx, "switch resolved",
		slog.String("method", string(m.Kind())),
		slog.String("result", string(resp.Result)),
	)
	return resp, nil
}

func (h *Handler) complete(ctx context.Context, name string, raw json.RawMessage) (*model.CompleteResponse, error) {
	m, err := h.method(name)
	if err != nil {
		return nil, err
	}

	resp, err := m.Complete(ctx, raw)
	if err != nil {
		return nil, err
	}
	h.logger.InfoContext(ctx, "switch completed",
		slog.String("method", string(m.Kind())),
		slog.String("nonce_type", resp.Nonce.Type),
	)
	return resp, nil
}
