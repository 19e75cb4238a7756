package handler

import (
	"net/http"

	"payment-switch/internal/model"
)

// handleMethods lists the enabled payment methods.
// GET /methods
func (h *Handler) handleMethods(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.methodList())
}

// methodsResponse is the body of GET /methods and the list_methods tool.
type methodsResponse struct {
	Methods []model.MethodKind `json:"methods"`
}

func (h *Handler) methodList() *methodsResponse {
	kinds := h.methods.Kinds()
	if kinds == nil {
		kinds = []model.MethodKind{}
	}
	return &methodsResponse{Methods: kinds}
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}
