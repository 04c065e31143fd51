package orders

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrAlreadyExists     = errors.New("order already exists")
	ErrDuplicatePayment  = errors.New("payment already attached to an order")
	ErrStatusConflict    = errors.New("order status changed concurrently")
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbiddenVendor   = errors.New("order does not include this vendor")

	ErrReceiptNotSuccessful = errors.New("payment receipt is not successful")
	ErrReceiptNotVerified   = errors.New("payment receipt is not verified")
	ErrNoItems              = errors.New("order has no items")
)

// TransitionError names the rejected edge. It matches ErrInvalidTransition.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
