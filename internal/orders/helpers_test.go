package orders

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// verifiedReceipt runs a sandbox payment through the adapter.
func verifiedReceipt(t *testing.T, amount int64) payment.Receipt {
	t.Helper()
	sb := payment.NewSandbox("test-secret")
	a := payment.NewAdapter(sb, 0, testLogger())
	ctx := context.Background()

	intent, err := a.CreatePaymentIntent(ctx, amount, "INR")
	require.NoError(t, err)
	receipt, err := a.ConfirmReceipt(ctx, intent, sb.Approve(intent.GatewayOrderID))
	require.NoError(t, err)
	return receipt
}

func twoVendorLines() []cart.Line {
	return []cart.Line{
		{ID: "l1", Product: cart.Product{ID: "p-thali", Name: "Veg Thali", Price: 60}, VendorID: "A", VendorName: "Annapurna", Quantity: 2},
		{ID: "l2", Product: cart.Product{ID: "p-lassi", Name: "Lassi", Price: 50}, VendorID: "B", VendorName: "Bombay Dairy", Quantity: 1},
	}
}

type fakeCache struct {
	mu     sync.Mutex
	status map[string]redisx.OrderStatus
}

func newFakeCache() *fakeCache { return &fakeCache{status: map[string]redisx.OrderStatus{}} }

func (c *fakeCache) SetStatus(_ context.Context, id string, s redisx.OrderStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.status[id]; ok && prev.UpdatedAt.After(s.UpdatedAt) {
		return nil
	}
	c.status[id] = s
	return nil
}

func (c *fakeCache) GetStatus(_ context.Context, id string) (redisx.OrderStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.status[id]
	return s, ok, nil
}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []kafkago.Message
}

func (p *capturePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, kafkago.Message{Key: key, Value: value, Headers: headers, Time: time.Now()})
}

func (p *capturePublisher) messages() []kafkago.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafkago.Message(nil), p.msgs...)
}

func newPendingOrder(t *testing.T, repo Repository) *Order {
	t.Helper()
	f := NewFactory(repo, nil, nil, 30*time.Minute, testLogger())
	o, err := f.CreateOrder(context.Background(), NewOrder{
		CustomerID: "cust-1",
		Customer:   CustomerDetails{Name: "Asha", Phone: "9876543210", Email: "asha@example.com"},
		Address:    Address{Street: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001"},
		Lines:      twoVendorLines(),
		Receipt:    verifiedReceipt(t, 210),
	})
	require.NoError(t, err)
	return o
}
