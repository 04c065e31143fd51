package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	Store   *orders.Store
	Machine *orders.StateMachine
}

type AdvanceReq struct {
	// Status is the target; empty means the next forward step.
	Status string `json:"status"`
}

type StatusResp struct {
	OrderID string        `json:"order_id"`
	Status  orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(requireCustomer)
		r.Get("/", h.listMine)
		r.Get("/{id}", h.getMine)
		r.Get("/{id}/status", h.getStatus)
		r.Post("/{id}/cancel", h.cancelMine)
	})
	r.Route("/api/vendor/orders", func(r chi.Router) {
		r.Get("/", h.listVendor)
		r.Post("/{id}/status", h.advance)
	})
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Store.ListByCustomer(ctx, customerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (h *OrdersHandler) getMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.GetForCustomer(ctx, chi.URLParam(r, "id"), customerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache, 2) fallback DB
	s, err := h.Store.Status(ctx, id, customerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResp{OrderID: id, Status: s})
}

func (h *OrdersHandler) cancelMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Machine.CancelByCustomer(ctx, chi.URLParam(r, "id"), customerID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// listVendor lists orders for a vendor. Without X-Vendor-ID the caller is an
// operator and may filter by any vendor_id.
func (h *OrdersHandler) listVendor(w http.ResponseWriter, r *http.Request) {
	f := orders.Filter{VendorID: r.URL.Query().Get("vendor_id")}
	if v := vendorID(r); v != "" {
		f.VendorID = v
	}
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := orders.ParseStatus(s)
		if err != nil {
			writeError(w, err)
			return
		}
		f.Status = st
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Store.ListAll(ctx, f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (h *OrdersHandler) advance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceReq
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	actor := orders.Actor{Kind: orders.ActorVendor, ID: vendorID(r)}

	var (
		o   *orders.Order
		err error
	)
	if req.Status == "" {
		o, err = h.Machine.AdvanceNext(ctx, id, actor)
	} else {
		o, err = h.Machine.Advance(ctx, id, orders.Status(req.Status), actor)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func nonNil(in []*orders.Order) []*orders.Order {
	if in == nil {
		return []*orders.Order{}
	}
	return in
}
