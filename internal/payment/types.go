package payment

import (
	"errors"
	"time"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrUnverified         = errors.New("payment could not be verified")
	ErrInvalidAmount      = errors.New("payment amount must be positive")
	ErrChallengeResolved  = errors.New("payment challenge already resolved")
	ErrOrderMismatch      = errors.New("gateway order id does not match the intent")
	ErrIncompleteResponse = errors.New("gateway response is missing fields")
)

// Intent is a gateway-side order for a fixed amount. Amount is in whole
// currency units and never changes after creation.
type Intent struct {
	GatewayOrderID string    `json:"gateway_order_id"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	Provider       string    `json:"provider"`
	PublicKey      string    `json:"public_key"`
	CreatedAt      time.Time `json:"created_at"`
}

type Payer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// GatewayResponse is what the client hands back after the gateway UI
// reports success.
type GatewayResponse struct {
	PaymentID      string `json:"razorpay_payment_id"`
	GatewayOrderID string `json:"razorpay_order_id"`
	Signature      string `json:"razorpay_signature"`
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

type Receipt struct {
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	Signature        string    `json:"signature"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	Status           Status    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`

	verified bool
}

// Verified reports whether the receipt was minted after a successful
// signature check in this process.
func (r Receipt) Verified() bool { return r.verified }

type FailureReason string

const (
	ReasonUserCancelled FailureReason = "user_cancelled"
	ReasonTimeout       FailureReason = "gateway_timeout"
	ReasonDeclined      FailureReason = "declined"
)

type Failure struct {
	Reason FailureReason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return string(f.Reason)
	}
	return string(f.Reason) + ": " + f.Detail
}

// Outcome holds exactly one of Response or Failure.
type Outcome struct {
	Response *GatewayResponse
	Failure  *Failure
}

// toMinor converts whole units to the gateway's minor unit (paise, cents).
func toMinor(amount int64) int64 { return amount * 100 }
