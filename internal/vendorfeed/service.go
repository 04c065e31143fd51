package vendorfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	kafkax "github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Service keeps a per-vendor list of recent orders in Redis, fed by order
// events. It never talks to Postgres and only writes its own keys; the
// order_status cache belongs to the API.
type Service struct {
	Redis       *redis.Client
	ServiceName string
	Logger      *log.Logger
}

// HandleOrderEvent dipasang sebagai handler consumer untuk kedua topic order.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	// header cukup untuk skip event yang tidak relevan tanpa decode
	if t := kafkax.Header(m.Headers, "x-event-type"); t != "" && t != orders.EventOrderCreated && t != orders.EventOrderStatusChanged {
		return nil
	}

	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// pesan rusak tidak akan pernah sukses, jangan blok partisi
		s.Logger.Printf("vendorfeed: drop undecodable message offset=%d: %v", m.Offset, err)
		return nil
	}
	if env.EventType != orders.EventOrderCreated && env.EventType != orders.EventOrderStatusChanged {
		return nil
	}

	// 2) dedup via Redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	won, err := redisx.Claim(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("claim event %s: %w", env.EventID, err)
	}
	if !won {
		return nil
	}

	// 3) apply
	switch env.EventType {
	case orders.EventOrderCreated:
		err = s.applyCreated(ctx, env)
	case orders.EventOrderStatusChanged:
		err = s.applyStatusChanged(ctx, env)
	}
	if err != nil {
		// lepas klaim supaya redelivery bisa proses ulang
		_ = s.Redis.Del(ctx, dkey).Err()
		return err
	}
	return nil
}

func (s *Service) applyCreated(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}
	items, err := json.Marshal(p.Items)
	if err != nil {
		return err
	}

	okey := fmt.Sprintf(redisx.KeyFeedOrder, p.OrderID)
	score := float64(p.CreatedAt.Unix())
	_, err = s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, okey,
			"order_id", p.OrderID,
			"customer_id", p.CustomerID,
			"currency", p.Currency,
			"items", items,
			"created_at", p.CreatedAt.Format(time.RFC3339Nano),
		)
		// status bisa sudah lebih maju kalau status_changed datang duluan
		pipe.HSetNX(ctx, okey, "status", string(p.Status))
		pipe.HSetNX(ctx, okey, "updated_at", p.CreatedAt.Format(time.RFC3339Nano))
		pipe.Expire(ctx, okey, redisx.TTLFeedOrder)
		for _, v := range p.VendorIDs {
			fkey := fmt.Sprintf(redisx.KeyVendorFeed, v)
			pipe.ZAdd(ctx, fkey, redis.Z{Score: score, Member: p.OrderID})
			pipe.ZRemRangeByRank(ctx, fkey, 0, -int64(redisx.VendorFeedLimit)-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("feed order %s: %w", p.OrderID, err)
	}
	s.Logger.Printf("vendorfeed: order=%s added for vendors=%v trace=%s", p.OrderID, p.VendorIDs, env.TraceID)
	return nil
}

func (s *Service) applyStatusChanged(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}
	okey := fmt.Sprintf(redisx.KeyFeedOrder, p.OrderID)

	// abaikan event yang lebih tua dari yang sudah tercatat
	prev, err := s.Redis.HGet(ctx, okey, "updated_at").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read feed order %s: %w", p.OrderID, err)
	}
	if prev != "" {
		if t, perr := time.Parse(time.RFC3339Nano, prev); perr == nil && p.ChangedAt.Before(t) {
			return nil
		}
	}

	_, err = s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, okey,
			"status", string(p.To),
			"updated_at", p.ChangedAt.Format(time.RFC3339Nano),
		)
		pipe.Expire(ctx, okey, redisx.TTLFeedOrder)
		return nil
	})
	if err != nil {
		return fmt.Errorf("feed status %s: %w", p.OrderID, err)
	}
	return nil
}

// Entry is one order as a vendor sees it: only that vendor's lines.
type Entry struct {
	OrderID     string            `json:"order_id"`
	CustomerID  string            `json:"customer_id"`
	Status      orders.Status     `json:"status"`
	Items       []orders.LineItem `json:"items"`
	VendorTotal int64             `json:"vendor_total"`
	Currency    string            `json:"currency"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Recent returns up to limit of the vendor's newest orders.
func (s *Service) Recent(ctx context.Context, vendorID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > redisx.VendorFeedLimit {
		limit = redisx.VendorFeedLimit
	}
	ids, err := s.Redis.ZRevRange(ctx, fmt.Sprintf(redisx.KeyVendorFeed, vendorID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read vendor feed %s: %w", vendorID, err)
	}
	if len(ids) == 0 {
		return []Entry{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.Redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, fmt.Sprintf(redisx.KeyFeedOrder, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read feed orders: %w", err)
	}

	out := make([]Entry, 0, len(ids))
	for _, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			continue // sudah expired
		}
		e, err := decodeEntry(h, vendorID)
		if err != nil {
			s.Logger.Printf("vendorfeed: skip entry: %v", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeEntry(h map[string]string, vendorID string) (Entry, error) {
	e := Entry{
		OrderID:    h["order_id"],
		CustomerID: h["customer_id"],
		Status:     orders.Status(h["status"]),
		Currency:   h["currency"],
	}
	var all []orders.LineItem
	if err := json.Unmarshal([]byte(h["items"]), &all); err != nil {
		return Entry{}, fmt.Errorf("order %s items: %w", e.OrderID, err)
	}
	for _, it := range all {
		if it.VendorID != vendorID {
			continue
		}
		e.Items = append(e.Items, it)
		e.VendorTotal += it.Price * int64(it.Quantity)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, h["created_at"])
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, h["updated_at"])
	return e, nil
}

// ParseLimit reads a ?limit= value, falling back to def.
func ParseLimit(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
