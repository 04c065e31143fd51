package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventPaymentUnverified  = "PaymentUnverified"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "order-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type OrderCreatedPayload struct {
	OrderID     string     `json:"order_id"`
	CustomerID  string     `json:"customer_id"`
	VendorIDs   []string   `json:"vendor_ids"`
	Items       []LineItem `json:"items"`
	TotalAmount int64      `json:"total_amount"`
	Currency    string     `json:"currency"`
	PaymentID   string     `json:"payment_id"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

type OrderStatusChangedPayload struct {
	OrderID   string    `json:"order_id"`
	VendorIDs []string  `json:"vendor_ids"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Actor     string    `json:"actor"` // customer | vendor | system
	ChangedAt time.Time `json:"changed_at"`
}

// PaymentUnverifiedPayload flags money that may have moved without an
// order. Support reconciles these by hand.
type PaymentUnverifiedPayload struct {
	CustomerID     string `json:"customer_id"`
	AttemptID      string `json:"attempt_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Provider       string `json:"provider"`
}
