package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/checkout"
	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
	"github.com/go-chi/chi/v5"
)

type CheckoutHandler struct {
	Checkout *checkout.Service
	// Settle bounds how long payment callbacks wait for the order.
	Settle time.Duration
}

type FailureReq struct {
	Detail string `json:"detail"`
}

func (h *CheckoutHandler) Register(r chi.Router) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(requireCustomer)
		r.Post("/", h.begin)
		r.Get("/{attemptID}", h.get)
		r.Post("/{attemptID}/payment", h.submitPayment)
		r.Post("/{attemptID}/failure", h.reportFailure)
		r.Post("/{attemptID}/cancel", h.cancel)
		r.Post("/{attemptID}/verify", h.retry)
	})
}

func (h *CheckoutHandler) settleCtx(r *http.Request) (context.Context, context.CancelFunc) {
	d := h.Settle
	if d <= 0 {
		d = 20 * time.Second
	}
	return context.WithTimeout(r.Context(), d)
}

func (h *CheckoutHandler) begin(w http.ResponseWriter, r *http.Request) {
	var form checkout.FormData
	if !decodeJSON(w, r, &form) {
		return
	}
	ctx, cancel := h.settleCtx(r)
	defer cancel()

	a, err := h.Checkout.Begin(ctx, customerID(r), form)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *CheckoutHandler) get(w http.ResponseWriter, r *http.Request) {
	a, err := h.Checkout.Get(chi.URLParam(r, "attemptID"), customerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *CheckoutHandler) submitPayment(w http.ResponseWriter, r *http.Request) {
	var resp payment.GatewayResponse
	if !decodeJSON(w, r, &resp) {
		return
	}
	ctx, cancel := h.settleCtx(r)
	defer cancel()

	a, err := h.Checkout.SubmitPayment(ctx, chi.URLParam(r, "attemptID"), customerID(r), resp)
	writeAttempt(w, a, err)
}

func (h *CheckoutHandler) reportFailure(w http.ResponseWriter, r *http.Request) {
	var req FailureReq
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := h.settleCtx(r)
	defer cancel()

	a, err := h.Checkout.ReportFailure(ctx, chi.URLParam(r, "attemptID"), customerID(r), req.Detail)
	if errors.Is(err, checkout.ErrPaymentDeclined) {
		// client yang lapor gagal, jadi ini hasil yang diharapkan
		writeJSON(w, http.StatusOK, a)
		return
	}
	writeAttempt(w, a, err)
}

func (h *CheckoutHandler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.settleCtx(r)
	defer cancel()

	a, err := h.Checkout.Cancel(ctx, chi.URLParam(r, "attemptID"), customerID(r))
	if errors.Is(err, checkout.ErrPaymentCancelled) {
		writeJSON(w, http.StatusOK, a)
		return
	}
	writeAttempt(w, a, err)
}

func (h *CheckoutHandler) retry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.settleCtx(r)
	defer cancel()

	a, err := h.Checkout.Retry(ctx, chi.URLParam(r, "attemptID"), customerID(r))
	writeAttempt(w, a, err)
}

// writeAttempt sends the attempt on success, or the error with the attempt
// attached so the client can render its state.
func writeAttempt(w http.ResponseWriter, a checkout.Attempt, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, a)
		return
	}
	if a.ID == "" {
		writeError(w, err)
		return
	}
	writeErrorDetail(w, err, a)
}
