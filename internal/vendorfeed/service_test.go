package vendorfeed

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Service{
		Redis:       rdb,
		ServiceName: "vendorfeed",
		Logger:      log.New(io.Discard, "", 0),
	}, mr
}

func message(t *testing.T, eventID, eventType string, payload any) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:      eventID,
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload:      kafkax.MustMarshal(payload),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func created(orderID string, at time.Time) orders.OrderCreatedPayload {
	return orders.OrderCreatedPayload{
		OrderID:    orderID,
		CustomerID: "cust-1",
		VendorIDs:  []string{"A", "B"},
		Items: []orders.LineItem{
			{ProductID: "p-thali", ProductName: "Veg Thali", Quantity: 2, Price: 60, VendorID: "A", VendorName: "Annapurna"},
			{ProductID: "p-lassi", ProductName: "Lassi", Quantity: 1, Price: 50, VendorID: "B", VendorName: "Bombay Dairy"},
		},
		TotalAmount: 210,
		Currency:    "INR",
		Status:      orders.StatusPending,
		CreatedAt:   at,
	}
}

func TestHandleOrderEvent_CreatedFansOutPerVendor(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.HandleOrderEvent(ctx, message(t, "e1", orders.EventOrderCreated, created("o-1", at))))

	a, err := s.Recent(ctx, "A", 10)
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "o-1", a[0].OrderID)
	assert.Equal(t, orders.StatusPending, a[0].Status)
	require.Len(t, a[0].Items, 1)
	assert.Equal(t, "p-thali", a[0].Items[0].ProductID)
	assert.Equal(t, int64(120), a[0].VendorTotal)
	assert.True(t, at.Equal(a[0].CreatedAt))

	b, err := s.Recent(ctx, "B", 10)
	require.NoError(t, err)
	require.Len(t, b, 1)
	assert.Equal(t, int64(50), b[0].VendorTotal)

	none, err := s.Recent(ctx, "C", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHandleOrderEvent_Dedup(t *testing.T) {
	s, mr := setup(t)
	ctx := context.Background()
	at := time.Now().UTC()

	msg := message(t, "e1", orders.EventOrderCreated, created("o-1", at))
	require.NoError(t, s.HandleOrderEvent(ctx, msg))
	require.NoError(t, s.HandleOrderEvent(ctx, msg))

	assert.True(t, mr.Exists(fmt.Sprintf(redisx.KeyDedup, "vendorfeed", "e1")))
	members, err := mr.ZMembers(fmt.Sprintf(redisx.KeyVendorFeed, "A"))
	require.NoError(t, err)
	assert.Equal(t, []string{"o-1"}, members)
}

func TestHandleOrderEvent_StatusChanged(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	at := time.Now().UTC().Add(-time.Minute)

	require.NoError(t, s.HandleOrderEvent(ctx, message(t, "e1", orders.EventOrderCreated, created("o-1", at))))
	require.NoError(t, s.HandleOrderEvent(ctx, message(t, "e2", orders.EventOrderStatusChanged, orders.OrderStatusChangedPayload{
		OrderID: "o-1", VendorIDs: []string{"A", "B"}, From: orders.StatusPending, To: orders.StatusConfirmed,
		Actor: "vendor", ChangedAt: at.Add(10 * time.Second),
	})))

	a, err := s.Recent(ctx, "A", 10)
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, orders.StatusConfirmed, a[0].Status)

	// cache status milik API, feed tidak menulis ke sana
	_, ok, err := redisx.NewStatusCache(s.Redis).GetStatus(ctx, "o-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// older event replayed out of order is ignored
	require.NoError(t, s.HandleOrderEvent(ctx, message(t, "e0", orders.EventOrderStatusChanged, orders.OrderStatusChangedPayload{
		OrderID: "o-1", From: orders.StatusPending, To: orders.StatusCancelled, ChangedAt: at.Add(time.Second),
	})))
	a, err = s.Recent(ctx, "A", 10)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusConfirmed, a[0].Status)
}

func TestHandleOrderEvent_StatusBeforeCreatedKeepsNewerStatus(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	at := time.Now().UTC().Add(-time.Minute)

	require.NoError(t, s.HandleOrderEvent(ctx, message(t, "e2", orders.EventOrderStatusChanged, orders.OrderStatusChangedPayload{
		OrderID: "o-1", From: orders.StatusPending, To: orders.StatusConfirmed, ChangedAt: at.Add(time.Second),
	})))
	require.NoError(t, s.HandleOrderEvent(ctx, message(t, "e1", orders.EventOrderCreated, created("o-1", at))))

	a, err := s.Recent(ctx, "A", 10)
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, orders.StatusConfirmed, a[0].Status)
}

type capturePublisher struct {
	msgs []kafkago.Message
}

func (p *capturePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.msgs = append(p.msgs, kafkago.Message{Key: key, Value: value, Headers: headers})
}

func TestHandleOrderEvent_LaggingFeedKeepsApiStatus(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)
	at := time.Now().UTC().Add(-time.Minute)

	repo := orders.NewMemoryRepository()
	p := created("o-1", at)
	require.NoError(t, repo.Save(ctx, &orders.Order{
		ID: p.OrderID, CustomerID: p.CustomerID, VendorIDs: p.VendorIDs, Items: p.Items,
		TotalAmount: p.TotalAmount, Currency: p.Currency, Status: orders.StatusPending,
		CreatedAt: at, UpdatedAt: at,
	}))

	cache := redisx.NewStatusCache(s.Redis)
	pub := &capturePublisher{}
	m := orders.NewStateMachine(repo, &orders.Emitter{StatusChanges: pub, Service: "order-api"}, cache, logger)
	vendor := orders.Actor{Kind: orders.ActorVendor, ID: "A"}
	_, err := m.Advance(ctx, "o-1", orders.StatusConfirmed, vendor)
	require.NoError(t, err)
	_, err = m.Advance(ctx, "o-1", orders.StatusPreparing, vendor)
	require.NoError(t, err)
	require.Len(t, pub.msgs, 2)

	// feed baru sampai event confirmed
	require.NoError(t, s.HandleOrderEvent(ctx, message(t, "e1", orders.EventOrderCreated, p)))
	require.NoError(t, s.HandleOrderEvent(ctx, pub.msgs[0]))

	st, err := orders.NewStore(repo, cache, logger).Status(ctx, "o-1", p.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPreparing, st)

	a, err := s.Recent(ctx, "A", 10)
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, orders.StatusConfirmed, a[0].Status)
}

func TestHandleOrderEvent_IgnoresJunk(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	assert.NoError(t, s.HandleOrderEvent(ctx, kafkago.Message{Value: []byte("not json")}))
	assert.NoError(t, s.HandleOrderEvent(ctx, message(t, "e9", orders.EventPaymentUnverified, orders.PaymentUnverifiedPayload{})))
}

func TestHandleOrderEvent_RedisDownIsRetried(t *testing.T) {
	s, mr := setup(t)
	mr.Close()

	err := s.HandleOrderEvent(context.Background(), message(t, "e1", orders.EventOrderCreated, created("o-1", time.Now())))
	assert.Error(t, err)
}

func TestRecent_NewestFirstAndTrimmed(t *testing.T) {
	s, mr := setup(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("o-%d", i)
		require.NoError(t, s.HandleOrderEvent(ctx, message(t, uuid.NewString(), orders.EventOrderCreated, created(id, base.Add(time.Duration(i)*time.Minute)))))
	}

	got, err := s.Recent(ctx, "A", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "o-4", got[0].OrderID)
	assert.Equal(t, "o-3", got[1].OrderID)

	mr.Del(fmt.Sprintf(redisx.KeyFeedOrder, "o-4"))
	got, err = s.Recent(ctx, "A", 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "o-3", got[0].OrderID)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 50, ParseLimit("", 50))
	assert.Equal(t, 50, ParseLimit("-3", 50))
	assert.Equal(t, 7, ParseLimit("7", 50))
}
