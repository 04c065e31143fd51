package checkout

import (
	"sync"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
)

type State string

const (
	StateAwaitingPayment State = "awaiting_payment"
	StateRetryable       State = "retryable"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
	StateCancelled       State = "cancelled"
	StateUnverified      State = "unverified"
)

// Attempt is a read-only view of one checkout.
type Attempt struct {
	ID         string         `json:"id"`
	CustomerID string         `json:"customer_id"`
	State      State          `json:"state"`
	Intent     payment.Intent `json:"intent"`
	Lines      []cart.Line    `json:"lines"`
	Bill       cart.Bill      `json:"bill"`
	OrderID    string         `json:"order_id,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type attempt struct {
	mu sync.Mutex

	id         string
	customerID string
	form       FormData
	intent     payment.Intent
	lines      []cart.Line
	bill       cart.Bill
	challenge  *payment.Challenge

	state    State
	err      error
	orderID  string
	reason   string
	response *payment.GatewayResponse

	createdAt time.Time
	updatedAt time.Time

	// closed once the challenge outcome has been processed
	settled chan struct{}
}

func (a *attempt) view() Attempt {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewLocked()
}

// result is the view plus the error that describes the current state.
func (a *attempt) result() (Attempt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewLocked(), a.err
}

func (a *attempt) viewLocked() Attempt {
	return Attempt{
		ID:         a.id,
		CustomerID: a.customerID,
		State:      a.state,
		Intent:     a.intent,
		Lines:      append([]cart.Line(nil), a.lines...),
		Bill:       a.bill,
		OrderID:    a.orderID,
		Reason:     a.reason,
		CreatedAt:  a.createdAt,
		UpdatedAt:  a.updatedAt,
	}
}

func (a *attempt) setLocked(state State, err error, reason string, at time.Time) {
	a.state = state
	a.err = err
	a.reason = reason
	a.updatedAt = at
}

func (a *attempt) finishedLocked() bool {
	switch a.state {
	case StateCompleted, StateFailed, StateCancelled, StateUnverified:
		return true
	}
	return false
}
