package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	HeaderCustomerID = "X-Customer-ID"
	HeaderVendorID   = "X-Vendor-ID"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// requireCustomer rejects requests without a customer identity.
func requireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderCustomerID) == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing " + HeaderCustomerID})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func customerID(r *http.Request) string { return r.Header.Get(HeaderCustomerID) }

func vendorID(r *http.Request) string { return r.Header.Get(HeaderVendorID) }
