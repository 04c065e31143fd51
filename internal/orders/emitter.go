package orders

import (
	"context"
	"strconv"
	"time"

	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Emitter wraps domain events in the v1 envelope. Nil publishers are
// skipped, which is how the service runs without Kafka.
type Emitter struct {
	Created       Publisher
	StatusChanges Publisher
	Unverified    Publisher
	Service       string
}

func (e *Emitter) OrderCreated(ctx context.Context, o *Order) {
	if e == nil || e.Created == nil {
		return
	}
	e.publish(ctx, e.Created, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		VendorIDs:   o.VendorIDs,
		Items:       o.Items,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		PaymentID:   o.Receipt.GatewayPaymentID,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	})
}

func (e *Emitter) StatusChanged(ctx context.Context, o *Order, from Status, actor ActorKind) {
	if e == nil || e.StatusChanges == nil {
		return
	}
	e.publish(ctx, e.StatusChanges, EventOrderStatusChanged, o.ID, OrderStatusChangedPayload{
		OrderID:   o.ID,
		VendorIDs: o.VendorIDs,
		From:      from,
		To:        o.Status,
		Actor:     string(actor),
		ChangedAt: o.UpdatedAt,
	})
}

func (e *Emitter) PaymentUnverified(ctx context.Context, p PaymentUnverifiedPayload) {
	if e == nil || e.Unverified == nil {
		return
	}
	// belum ada order_id, jadi partisi pakai gateway order id
	e.publish(ctx, e.Unverified, EventPaymentUnverified, p.GatewayOrderID, p)
}

func (e *Emitter) publish(ctx context.Context, p Publisher, eventType, key string, payload any) {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: key,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(key), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(ev.EventVersion))},
	)
}
