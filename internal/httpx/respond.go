package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/checkout"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

const maxBody = 1 << 20

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Detail any               `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return false
	}
	return true
}

// writeError maps domain errors onto status codes. Each failure keeps its own
// message; only unknown errors are collapsed into "internal error".
func writeError(w http.ResponseWriter, err error) {
	writeErrorDetail(w, err, nil)
}

func writeErrorDetail(w http.ResponseWriter, err error, detail any) {
	code, msg := classify(err)
	body := errorBody{Error: msg, Detail: detail}
	var ve *checkout.ValidationError
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
	}
	writeJSON(w, code, body)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, checkout.ErrValidation):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, cart.ErrInvalidItem),
		errors.Is(err, orders.ErrUnknownStatus),
		errors.Is(err, checkout.ErrPaymentMismatch):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, checkout.ErrAttemptNotFound):
		return http.StatusNotFound, "not found"

	case errors.Is(err, orders.ErrForbiddenVendor):
		return http.StatusForbidden, orders.ErrForbiddenVendor.Error()

	case errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, orders.ErrStatusConflict),
		errors.Is(err, checkout.ErrAttemptClosed),
		errors.Is(err, checkout.ErrNotRetryable):
		return http.StatusConflict, err.Error()

	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusUnprocessableEntity, checkout.ErrEmptyCart.Error()
	case errors.Is(err, checkout.ErrPaymentDeclined):
		return http.StatusPaymentRequired, checkout.ErrPaymentDeclined.Error()
	case errors.Is(err, checkout.ErrPaymentTimeout):
		return http.StatusPaymentRequired, checkout.ErrPaymentTimeout.Error()
	case errors.Is(err, checkout.ErrPaymentCancelled):
		return http.StatusConflict, checkout.ErrPaymentCancelled.Error()
	case errors.Is(err, checkout.ErrPaymentUnverified):
		return http.StatusUnprocessableEntity, checkout.ErrPaymentUnverified.Error()

	case errors.Is(err, checkout.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, checkout.ErrGatewayUnavailable.Error()
	case errors.Is(err, checkout.ErrOrderNotCreated):
		return http.StatusBadGateway, checkout.ErrOrderNotCreated.Error()

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	}
	return http.StatusInternalServerError, "internal error"
}
