package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/redis/go-redis/v9"
)

// CartStore keeps session carts as JSON values. Every write refreshes the
// TTL so an active cart lives as long as its session.
type CartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCartStore(rdb *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{rdb: rdb, ttl: ttl}
}

func (s *CartStore) Get(ctx context.Context, sessionID string) (*cart.Cart, error) {
	raw, err := s.rdb.Get(ctx, CartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &cart.Cart{Items: []cart.Item{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	var c cart.Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return &c, nil
}

func (s *CartStore) Save(ctx context.Context, sessionID string, c *cart.Cart) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, CartKey(sessionID), raw, s.ttl).Err()
}

func (s *CartStore) Clear(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, CartKey(sessionID)).Err()
}
