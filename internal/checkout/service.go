package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
	"github.com/google/uuid"
)

type Config struct {
	Currency string
	// MaxRetries bounds automatic retries of gateway transport errors.
	MaxRetries int
	RetryDelay time.Duration
	// FinalizeTimeout bounds verification plus order creation.
	FinalizeTimeout time.Duration
	// Retention is how long finished attempts stay readable.
	Retention time.Duration
}

func (c Config) withDefaults() Config {
	if c.Currency == "" {
		c.Currency = "INR"
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.MaxRetries > 2 {
		c.MaxRetries = 2
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 300 * time.Millisecond
	}
	if c.FinalizeTimeout == 0 {
		c.FinalizeTimeout = 30 * time.Second
	}
	if c.Retention == 0 {
		c.Retention = time.Hour
	}
	return c
}

// Service runs checkout: cart snapshot, payment, verification, order.
type Service struct {
	carts    *cart.Service
	payments *payment.Adapter
	factory  *orders.Factory
	events   *orders.Emitter
	cfg      Config
	logger   *log.Logger
	now      func() time.Time

	mu       sync.RWMutex
	attempts map[string]*attempt
}

func NewService(carts *cart.Service, payments *payment.Adapter, factory *orders.Factory, events *orders.Emitter, cfg Config, logger *log.Logger) *Service {
	return &Service{
		carts:    carts,
		payments: payments,
		factory:  factory,
		events:   events,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
		attempts: make(map[string]*attempt),
	}
}

// Begin validates the form, freezes the cart and opens a payment challenge.
// It returns as soon as the challenge exists; the outcome is handled in the
// background.
func (s *Service) Begin(ctx context.Context, customerID string, form FormData) (Attempt, error) {
	form.Normalize()
	if err := form.Validate(); err != nil {
		return Attempt{}, err
	}

	lines, bill, err := s.carts.Snapshot(ctx, customerID)
	if err != nil {
		return Attempt{}, err
	}
	if len(lines) == 0 {
		return Attempt{}, ErrEmptyCart
	}

	var intent payment.Intent
	err = s.retry(ctx, func() error {
		var err error
		intent, err = s.payments.CreatePaymentIntent(ctx, bill.GrandTotal, s.cfg.Currency)
		return err
	})
	if err != nil {
		if payment.IsTransient(err) {
			return Attempt{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return Attempt{}, err
	}

	payer := payment.Payer{Name: form.CustomerName, Email: form.Email, Contact: form.PhoneNumber}
	now := s.now().UTC()
	a := &attempt{
		id:         uuid.NewString(),
		customerID: customerID,
		form:       form,
		intent:     intent,
		lines:      lines,
		bill:       bill,
		challenge:  s.payments.InitiateChallenge(intent, payer),
		state:      StateAwaitingPayment,
		createdAt:  now,
		updatedAt:  now,
		settled:    make(chan struct{}),
	}

	s.mu.Lock()
	s.pruneLocked(now)
	s.attempts[a.id] = a
	s.mu.Unlock()

	go s.await(a)

	s.logger.Printf("checkout started attempt=%s customer=%s gateway_order=%s amount=%d",
		a.id, customerID, intent.GatewayOrderID, intent.Amount)
	return a.view(), nil
}

// SubmitPayment hands in the gateway's success response and waits until
// the attempt has settled.
func (s *Service) SubmitPayment(ctx context.Context, attemptID, customerID string, resp payment.GatewayResponse) (Attempt, error) {
	a, err := s.lookup(attemptID, customerID)
	if err != nil {
		return Attempt{}, err
	}
	if err := a.challenge.Succeed(resp); err != nil {
		return Attempt{}, challengeErr(err)
	}
	return s.wait(ctx, a)
}

// ReportFailure records a decline reported by the gateway UI.
func (s *Service) ReportFailure(ctx context.Context, attemptID, customerID, detail string) (Attempt, error) {
	a, err := s.lookup(attemptID, customerID)
	if err != nil {
		return Attempt{}, err
	}
	if err := a.challenge.Fail(payment.ReasonDeclined, detail); err != nil {
		return Attempt{}, challengeErr(err)
	}
	return s.wait(ctx, a)
}

// Cancel records that the customer dismissed the payment prompt. The cart
// is left as it was.
func (s *Service) Cancel(ctx context.Context, attemptID, customerID string) (Attempt, error) {
	a, err := s.lookup(attemptID, customerID)
	if err != nil {
		return Attempt{}, err
	}
	if err := a.challenge.Cancel(); err != nil {
		return Attempt{}, challengeErr(err)
	}
	return s.wait(ctx, a)
}

// Retry re-runs verification and order creation for an attempt that hit a
// transport error after the customer paid.
func (s *Service) Retry(ctx context.Context, attemptID, customerID string) (Attempt, error) {
	a, err := s.lookup(attemptID, customerID)
	if err != nil {
		return Attempt{}, err
	}
	select {
	case <-a.settled:
	default:
		return Attempt{}, ErrNotRetryable
	}

	a.mu.Lock()
	if a.state != StateRetryable {
		a.mu.Unlock()
		return Attempt{}, ErrNotRetryable
	}
	s.finalizeLocked(ctx, a)
	a.mu.Unlock()
	return a.result()
}

func (s *Service) Get(attemptID, customerID string) (Attempt, error) {
	a, err := s.lookup(attemptID, customerID)
	if err != nil {
		return Attempt{}, err
	}
	return a.view(), nil
}

// Wait blocks until the attempt settles or ctx ends.
func (s *Service) Wait(ctx context.Context, attemptID, customerID string) (Attempt, error) {
	a, err := s.lookup(attemptID, customerID)
	if err != nil {
		return Attempt{}, err
	}
	return s.wait(ctx, a)
}

func (s *Service) wait(ctx context.Context, a *attempt) (Attempt, error) {
	select {
	case <-a.settled:
		return a.result()
	case <-ctx.Done():
		return a.view(), ctx.Err()
	}
}

func (s *Service) lookup(attemptID, customerID string) (*attempt, error) {
	s.mu.RLock()
	a, ok := s.attempts[attemptID]
	s.mu.RUnlock()
	if !ok || a.customerID != customerID {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

func (s *Service) await(a *attempt) {
	defer close(a.settled)
	<-a.challenge.Done()
	out, _ := a.challenge.Outcome()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FinalizeTimeout)
	defer cancel()

	a.mu.Lock()
	defer a.mu.Unlock()
	if out.Failure != nil {
		s.failLocked(a, out.Failure)
		return
	}
	a.response = out.Response
	s.finalizeLocked(ctx, a)
}

func (s *Service) failLocked(a *attempt, f *payment.Failure) {
	now := s.now().UTC()
	switch f.Reason {
	case payment.ReasonUserCancelled:
		a.setLocked(StateCancelled, ErrPaymentCancelled, f.Error(), now)
	case payment.ReasonTimeout:
		a.setLocked(StateFailed, ErrPaymentTimeout, f.Error(), now)
	default:
		a.setLocked(StateFailed, ErrPaymentDeclined, f.Error(), now)
	}
	s.logger.Printf("checkout attempt=%s ended without payment: %s", a.id, f.Error())
}

// finalizeLocked verifies the payment and creates the order. Caller holds a.mu.
func (s *Service) finalizeLocked(ctx context.Context, a *attempt) {
	var receipt payment.Receipt
	err := s.retry(ctx, func() error {
		var err error
		receipt, err = s.payments.ConfirmReceipt(ctx, a.intent, *a.response)
		return err
	})
	switch {
	case errors.Is(err, payment.ErrUnverified), errors.Is(err, payment.ErrOrderMismatch):
		a.setLocked(StateUnverified, ErrPaymentUnverified, "signature verification failed", s.now().UTC())
		s.flagForSupport(ctx, a)
		return
	case err != nil:
		a.setLocked(StateRetryable, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err), "verification unavailable", s.now().UTC())
		s.logger.Printf("checkout attempt=%s verification deferred: %v", a.id, err)
		return
	}

	o, err := s.factory.CreateOrder(ctx, orders.NewOrder{
		CustomerID: a.customerID,
		Customer:   a.form.customer(),
		Address:    a.form.address(),
		Lines:      a.lines,
		Receipt:    receipt,
	})
	if err != nil {
		if errors.Is(err, orders.ErrDuplicatePayment) {
			a.setLocked(StateFailed, ErrOrderNotCreated, "payment already attached to an order", s.now().UTC())
			s.flagForSupport(ctx, a)
			return
		}
		a.setLocked(StateRetryable, fmt.Errorf("%w: %v", ErrOrderNotCreated, err), "order not saved", s.now().UTC())
		s.logger.Printf("checkout attempt=%s create order: %v", a.id, err)
		return
	}

	a.orderID = o.ID
	a.setLocked(StateCompleted, nil, "", s.now().UTC())
	if err := s.carts.RemovePurchased(ctx, a.customerID, a.lines); err != nil {
		s.logger.Printf("checkout attempt=%s clear cart customer=%s: %v", a.id, a.customerID, err)
	}
	s.logger.Printf("checkout completed attempt=%s order=%s", a.id, o.ID)
}

func (s *Service) flagForSupport(ctx context.Context, a *attempt) {
	s.logger.Printf("checkout attempt=%s needs reconciliation: gateway_order=%s payment=%s reason=%s",
		a.id, a.intent.GatewayOrderID, a.response.PaymentID, a.reason)
	s.events.PaymentUnverified(ctx, orders.PaymentUnverifiedPayload{
		CustomerID:     a.customerID,
		AttemptID:      a.id,
		GatewayOrderID: a.intent.GatewayOrderID,
		PaymentID:      a.response.PaymentID,
		Amount:         a.intent.Amount,
		Currency:       a.intent.Currency,
		Provider:       a.intent.Provider,
	})
}

// pruneLocked drops finished attempts past retention. Caller holds s.mu.
func (s *Service) pruneLocked(now time.Time) {
	for id, a := range s.attempts {
		a.mu.Lock()
		stale := a.finishedLocked() && now.Sub(a.updatedAt) > s.cfg.Retention
		a.mu.Unlock()
		if stale {
			delete(s.attempts, id)
		}
	}
}

// retry runs fn again on gateway transport errors, at most MaxRetries times.
func (s *Service) retry(ctx context.Context, fn func() error) error {
	for i := 0; ; i++ {
		err := fn()
		if err == nil || !payment.IsTransient(err) || i >= s.cfg.MaxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(s.cfg.RetryDelay):
		}
	}
}

func challengeErr(err error) error {
	switch {
	case errors.Is(err, payment.ErrChallengeResolved):
		return ErrAttemptClosed
	case errors.Is(err, payment.ErrOrderMismatch), errors.Is(err, payment.ErrIncompleteResponse):
		return fmt.Errorf("%w: %v", ErrPaymentMismatch, err)
	}
	return err
}
