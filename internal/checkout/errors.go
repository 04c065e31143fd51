package checkout

import "errors"

// Each failure keeps its own error so clients can tell "try again" apart
// from "contact support".
var (
	ErrValidation         = errors.New("invalid checkout details")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable, try again")
	ErrPaymentDeclined    = errors.New("payment failed, try again")
	ErrPaymentCancelled   = errors.New("payment cancelled by user")
	ErrPaymentTimeout     = errors.New("payment window expired")
	ErrPaymentUnverified  = errors.New("payment could not be verified, contact support")
	ErrAttemptNotFound    = errors.New("checkout attempt not found")
	ErrAttemptClosed      = errors.New("checkout attempt already finished")
	ErrPaymentMismatch    = errors.New("payment response does not belong to this checkout")
	ErrNotRetryable       = errors.New("checkout attempt cannot be retried")
	ErrOrderNotCreated    = errors.New("payment received but order could not be created, contact support")
)
