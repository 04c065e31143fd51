package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OrderStatus is one cached status. CustomerID lets readers scope a hit to
// the order's owner without going to the database.
type OrderStatus struct {
	Status     string    `json:"status"`
	CustomerID string    `json:"customer_id,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const maxSetRetries = 3

// StatusCache keeps the latest known order status for cheap polling.
type StatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatusCache(rdb *redis.Client) *StatusCache {
	return &StatusCache{rdb: rdb, ttl: TTLStatusCache}
}

// SetStatus records s. A cached status stamped later than s.UpdatedAt is
// left alone, so a lagging writer cannot roll the cache back.
func (c *StatusCache) SetStatus(ctx context.Context, orderID string, s OrderStatus) error {
	key := fmt.Sprintf(KeyOrderStatus, orderID)
	s.UpdatedAt = s.UpdatedAt.UTC()
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var prev OrderStatus
			if json.Unmarshal(cur, &prev) == nil && prev.UpdatedAt.After(s.UpdatedAt) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, c.ttl)
			return nil
		})
		return err
	}

	// optimistic lock, ulang kalau key berubah di tengah jalan
	for i := 0; i < maxSetRetries; i++ {
		err = c.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("set status order %s: %w", orderID, err)
}

// GetStatus returns ok=false on a cache miss.
func (c *StatusCache) GetStatus(ctx context.Context, orderID string) (OrderStatus, bool, error) {
	b, err := c.rdb.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return OrderStatus{}, false, nil
	}
	if err != nil {
		return OrderStatus{}, false, err
	}
	var s OrderStatus
	if err := json.Unmarshal(b, &s); err != nil {
		return OrderStatus{}, false, fmt.Errorf("decode cached status: %w", err)
	}
	return s, s.Status != "", nil
}
