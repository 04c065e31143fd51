package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/keylock"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidItem = errors.New("invalid cart item")

// View is what a client renders: the lines, their vendor grouping and the bill.
type View struct {
	CustomerID string        `json:"customer_id"`
	Lines      []Line        `json:"lines"`
	Groups     []VendorGroup `json:"groups"`
	Bill       Bill          `json:"bill"`
	ItemCount  int           `json:"item_count"`
}

// Service applies cart mutations one at a time per customer. Different
// customers never contend.
type Service struct {
	store   Store
	pricing Pricing
	locks   *keylock.Locker
	sfg     singleflight.Group
	now     func() time.Time
}

func NewService(store Store, pricing Pricing) *Service {
	return &Service{
		store:   store,
		pricing: pricing,
		locks:   keylock.New(),
		now:     time.Now,
	}
}

func (s *Service) Pricing() Pricing { return s.pricing }

func (s *Service) Add(ctx context.Context, customerID string, p Product, vendorID, vendorName string) (View, error) {
	if p.ID == "" || vendorID == "" || p.Price < 0 {
		return View{}, ErrInvalidItem
	}
	return s.mutate(ctx, customerID, func(c *Cart) error {
		c.AddItem(p, vendorID, vendorName)
		return nil
	})
}

func (s *Service) UpdateQuantity(ctx context.Context, customerID, lineID string, qty int) (View, error) {
	return s.mutate(ctx, customerID, func(c *Cart) error {
		return c.UpdateQuantity(lineID, qty)
	})
}

func (s *Service) Remove(ctx context.Context, customerID, lineID string) (View, error) {
	return s.mutate(ctx, customerID, func(c *Cart) error {
		c.RemoveItem(lineID)
		return nil
	})
}

func (s *Service) Clear(ctx context.Context, customerID string) error {
	unlock := s.locks.Lock(customerID)
	defer unlock()
	return s.store.Delete(ctx, customerID)
}

// RemovePurchased drops the lines of a completed checkout from the cart.
func (s *Service) RemovePurchased(ctx context.Context, customerID string, bought []Line) error {
	_, err := s.mutate(ctx, customerID, func(c *Cart) error {
		c.RemovePurchased(bought)
		return nil
	})
	return err
}

// View reads the cart. Concurrent reads of the same cart share one load.
func (s *Service) View(ctx context.Context, customerID string) (View, error) {
	v, err, _ := s.sfg.Do(customerID, func() (any, error) {
		return s.load(ctx, customerID)
	})
	if err != nil {
		return View{}, err
	}
	return s.view(v.(*Cart)), nil
}

// Snapshot returns a copy of the current lines together with their bill.
func (s *Service) Snapshot(ctx context.Context, customerID string) ([]Line, Bill, error) {
	unlock := s.locks.Lock(customerID)
	defer unlock()

	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, Bill{}, err
	}
	lines := c.Snapshot()
	return lines, ComputeBill(lines, s.pricing), nil
}

func (s *Service) mutate(ctx context.Context, customerID string, fn func(c *Cart) error) (View, error) {
	unlock := s.locks.Lock(customerID)
	defer unlock()

	c, err := s.load(ctx, customerID)
	if err != nil {
		return View{}, err
	}
	if err := fn(c); err != nil {
		return View{}, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, c); err != nil {
		return View{}, fmt.Errorf("save cart: %w", err)
	}
	return s.view(c), nil
}

func (s *Service) load(ctx context.Context, customerID string) (*Cart, error) {
	c, err := s.store.Load(ctx, customerID)
	if errors.Is(err, ErrCartNotFound) {
		return New(customerID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return c, nil
}

func (s *Service) view(c *Cart) View {
	lines := c.Snapshot()
	return View{
		CustomerID: c.CustomerID,
		Lines:      lines,
		Groups:     GroupByVendor(lines),
		Bill:       ComputeBill(lines, s.pricing),
		ItemCount:  c.ItemCount(),
	}
}
