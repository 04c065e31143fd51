package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository is the order log. Orders are only appended; the one mutable
// field is Status, changed with compare-and-set.
type Repository interface {
	Save(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f Filter) ([]*Order, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error
}

type MemoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]*Order
	seq      []string
	payments map[string]string // gateway payment id -> order id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[string]*Order),
		payments: make(map[string]string),
	}
}

func (r *MemoryRepository) Save(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[o.ID]; ok {
		return ErrAlreadyExists
	}
	if pid := o.Receipt.GatewayPaymentID; pid != "" {
		if _, ok := r.payments[pid]; ok {
			return ErrDuplicatePayment
		}
		r.payments[pid] = o.ID
	}
	r.byID[o.ID] = o.clone()
	r.seq = append(r.seq, o.ID)
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.clone(), nil
}

// List returns matches newest first.
func (r *MemoryRepository) List(_ context.Context, f Filter) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Order, 0)
	for i := len(r.seq) - 1; i >= 0; i-- {
		o := r.byID[r.seq[i]]
		if f.match(o) {
			out = append(out, o.clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, from, to Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = at
	return nil
}
