// Package http serves the facilitator's HTTP surface: POST /verify,
// POST /settle and GET /supported. Envelope failures are 400s; pipeline
// outcomes are always 200s with a structured result body.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	facilitator "github.com/mark3labs/x402-facilitator"
	"github.com/mark3labs/x402-facilitator/validation"
)

// Handler exposes a Facilitator over HTTP.
type Handler struct {
	facilitator *facilitator.Facilitator
	logger      *slog.Logger
}

// NewHandler creates an HTTP handler for the given facilitator.
func NewHandler(f *facilitator.Facilitator) *Handler {
	return &Handler{
		facilitator: f,
		logger:      slog.Default(),
	}
}

// Router mounts the facilitator routes on a chi router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/verify", h.handleVerify)
	r.Post("/settle", h.handleSettle)
	r.Get("/supported", h.handleSupported)
	return r
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	resp := h.facilitator.Verify(r.Context(), &req.Payload, &req.Requirements)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	resp := h.facilitator.Settle(r.Context(), &req.Payload, &req.Requirements)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSupported(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.facilitator.Supported())
}

// decodeRequest parses and shape-checks the shared request envelope.
// On failure it writes a 400 and returns ok=false.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (facilitator.PaymentRequest, bool) {
	var req facilitator.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("malformed request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if err := validation.ValidatePaymentRequest(req); err != nil {
		h.logger.Warn("request failed shape validation", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
