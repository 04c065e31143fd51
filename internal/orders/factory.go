package orders

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/google/uuid"
)

// StatusCache is a best-effort fast path for status reads. SetStatus must
// not replace a status recorded at a later time.
type StatusCache interface {
	SetStatus(ctx context.Context, orderID string, s redisx.OrderStatus) error
	GetStatus(ctx context.Context, orderID string) (redisx.OrderStatus, bool, error)
}

func cacheEntry(o *Order) redisx.OrderStatus {
	return redisx.OrderStatus{Status: string(o.Status), CustomerID: o.CustomerID, UpdatedAt: o.UpdatedAt}
}

type NewOrder struct {
	CustomerID string
	Customer   CustomerDetails
	Address    Address
	Lines      []cart.Line
	Receipt    payment.Receipt
}

type Factory struct {
	repo   Repository
	events *Emitter
	cache  StatusCache
	window time.Duration
	now    func() time.Time
	logger *log.Logger
}

// NewFactory builds orders that are due window after creation. events and
// cache may be nil.
func NewFactory(repo Repository, events *Emitter, cache StatusCache, window time.Duration, logger *log.Logger) *Factory {
	return &Factory{repo: repo, events: events, cache: cache, window: window, now: time.Now, logger: logger}
}

// CreateOrder turns a verified payment and the lines it paid for into a
// pending order. The order total is what the gateway charged.
func (f *Factory) CreateOrder(ctx context.Context, in NewOrder) (*Order, error) {
	if in.Receipt.Status != payment.StatusSuccess {
		return nil, ErrReceiptNotSuccessful
	}
	if !in.Receipt.Verified() {
		return nil, ErrReceiptNotVerified
	}
	if len(in.Lines) == 0 {
		return nil, ErrNoItems
	}

	now := f.now().UTC()
	o := &Order{
		ID:                  uuid.NewString(),
		CustomerID:          in.CustomerID,
		Customer:            in.Customer,
		Items:               make([]LineItem, 0, len(in.Lines)),
		TotalAmount:         in.Receipt.Amount,
		Currency:            in.Receipt.Currency,
		Receipt:             in.Receipt,
		DeliveryAddress:     in.Address,
		Status:              StatusPending,
		CreatedAt:           now,
		EstimatedDeliveryAt: now.Add(f.window),
		UpdatedAt:           now,
	}
	seen := map[string]bool{}
	for _, l := range in.Lines {
		o.Items = append(o.Items, LineItem{
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			Price:       l.Product.Price,
			VendorID:    l.VendorID,
			VendorName:  l.VendorName,
		})
		if !seen[l.VendorID] {
			seen[l.VendorID] = true
			o.VendorIDs = append(o.VendorIDs, l.VendorID)
		}
	}

	if err := f.repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	f.logger.Printf("order created id=%s customer=%s vendors=%v total=%d %s payment=%s",
		o.ID, o.CustomerID, o.VendorIDs, o.TotalAmount, o.Currency, o.Receipt.GatewayPaymentID)

	if f.cache != nil {
		if err := f.cache.SetStatus(ctx, o.ID, cacheEntry(o)); err != nil {
			f.logger.Printf("cache status order=%s: %v", o.ID, err)
		}
	}
	f.events.OrderCreated(ctx, o)
	return o, nil
}
