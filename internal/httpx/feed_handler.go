package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
	"github.com/ariefcatur/go-marketplace-orders/internal/vendorfeed"
	"github.com/go-chi/chi/v5"
)

type FeedHandler struct {
	Feed *vendorfeed.Service
}

func (h *FeedHandler) Register(r chi.Router) {
	r.Get("/api/vendors/{vendorID}/feed", h.recent)
}

func (h *FeedHandler) recent(w http.ResponseWriter, r *http.Request) {
	vid := chi.URLParam(r, "vendorID")
	if v := vendorID(r); v != "" && v != vid {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "feed belongs to another vendor"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Feed.Recent(ctx, vid, vendorfeed.ParseLimit(r.URL.Query().Get("limit"), 50))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SandboxHandler stands in for the gateway's checkout UI in local runs. It
// is only mounted when the sandbox provider is configured.
type SandboxHandler struct {
	Sandbox *payment.Sandbox
}

func (h *SandboxHandler) Register(r chi.Router) {
	r.Post("/api/sandbox/payments/{gatewayOrderID}/approve", h.approve)
}

func (h *SandboxHandler) approve(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Sandbox.Approve(chi.URLParam(r, "gatewayOrderID")))
}
