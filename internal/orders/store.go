package orders

import (
	"context"
	"log"
)

// Store is the read side over a Repository.
type Store struct {
	repo   Repository
	cache  StatusCache
	logger *log.Logger
}

func NewStore(repo Repository, cache StatusCache, logger *log.Logger) *Store {
	return &Store{repo: repo, cache: cache, logger: logger}
}

func (s *Store) GetByID(ctx context.Context, id string) (*Order, error) {
	return s.repo.FindByID(ctx, id)
}

// GetForCustomer hides orders that belong to someone else behind ErrNotFound.
func (s *Store) GetForCustomer(ctx context.Context, id, customerID string) (*Order, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Store) ListByCustomer(ctx context.Context, customerID string) ([]*Order, error) {
	return s.repo.List(ctx, Filter{CustomerID: customerID})
}

func (s *Store) ListAll(ctx context.Context, f Filter) ([]*Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrUnknownStatus
	}
	return s.repo.List(ctx, f)
}

// Status returns the status of the customer's order, trying the cache first
// and falling back to the repository. Other customers' orders are
// ErrNotFound.
func (s *Store) Status(ctx context.Context, id, customerID string) (Status, error) {
	if s.cache != nil {
		v, ok, err := s.cache.GetStatus(ctx, id)
		switch {
		case err != nil:
			s.logger.Printf("status cache read order=%s: %v", id, err)
		case ok && v.CustomerID == customerID:
			return Status(v.Status), nil
		case ok && v.CustomerID != "":
			return "", ErrNotFound
		}
	}
	o, err := s.GetForCustomer(ctx, id, customerID)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		if err := s.cache.SetStatus(ctx, id, cacheEntry(o)); err != nil {
			s.logger.Printf("cache status order=%s: %v", id, err)
		}
	}
	return o.Status, nil
}
