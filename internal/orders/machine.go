package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/keylock"
)

type ActorKind string

const (
	ActorCustomer ActorKind = "customer"
	ActorVendor   ActorKind = "vendor"
	ActorSystem   ActorKind = "system"
)

// Actor is who asks for a transition. A vendor with an empty ID acts as an
// operator over every order.
type Actor struct {
	Kind ActorKind
	ID   string
}

// StateMachine moves orders along the fulfilment lifecycle. Transitions of
// one order are serialised in process and guarded by compare-and-set in the
// repository across processes.
type StateMachine struct {
	repo   Repository
	events *Emitter
	cache  StatusCache
	locks  *keylock.Locker
	now    func() time.Time
	logger *log.Logger
}

func NewStateMachine(repo Repository, events *Emitter, cache StatusCache, logger *log.Logger) *StateMachine {
	return &StateMachine{
		repo:   repo,
		events: events,
		cache:  cache,
		locks:  keylock.New(),
		now:    time.Now,
		logger: logger,
	}
}

func (m *StateMachine) Advance(ctx context.Context, orderID string, to Status, actor Actor) (*Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}

	unlock := m.locks.Lock(orderID)
	defer unlock()

	o, err := m.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(o, to, actor); err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, &TransitionError{From: o.Status, To: to}
	}

	from := o.Status
	at := m.now().UTC()
	if err := m.repo.UpdateStatus(ctx, orderID, from, to, at); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, fmt.Errorf("advance order %s: %w", orderID, err)
		}
		return nil, err
	}
	o.Status = to
	o.UpdatedAt = at

	m.logger.Printf("order status id=%s %s -> %s by %s:%s", o.ID, from, to, actor.Kind, actor.ID)
	if m.cache != nil {
		if err := m.cache.SetStatus(ctx, o.ID, cacheEntry(o)); err != nil {
			m.logger.Printf("cache status order=%s: %v", o.ID, err)
		}
	}
	m.events.StatusChanged(ctx, o, from, actor.Kind)
	return o, nil
}

// AdvanceNext moves the order one step forward.
func (m *StateMachine) AdvanceNext(ctx context.Context, orderID string, actor Actor) (*Order, error) {
	o, err := m.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, ok := o.Status.Next()
	if !ok {
		return nil, &TransitionError{From: o.Status, To: o.Status}
	}
	return m.Advance(ctx, orderID, next, actor)
}

func (m *StateMachine) CancelByCustomer(ctx context.Context, orderID, customerID string) (*Order, error) {
	return m.Advance(ctx, orderID, StatusCancelled, Actor{Kind: ActorCustomer, ID: customerID})
}

// Customers may only cancel their own order before a vendor confirms it.
func authorize(o *Order, to Status, actor Actor) error {
	switch actor.Kind {
	case ActorCustomer:
		if o.CustomerID != actor.ID {
			return ErrNotFound
		}
		if to != StatusCancelled || o.Status != StatusPending {
			return &TransitionError{From: o.Status, To: to}
		}
	case ActorVendor:
		if actor.ID != "" && !o.HasVendor(actor.ID) {
			return ErrForbiddenVendor
		}
	}
	return nil
}
