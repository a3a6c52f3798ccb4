package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omega-fast-coder/panoptikon/internal/domain"
)

func NewRedisPersister(client *redis.Client) *RedisPersister {
	return &RedisPersister{
		client:  client,
		baseTTL: 30 * 24 * time.Hour,
	}
}

// RedisPersister keeps one JSON snapshot of the item list per session under
// a well-known key. TTL gets a little jitter so snapshots written in the
// same burst do not all expire together.
type RedisPersister struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisPersister) Load(ctx context.Context, sessionID string) ([]domain.CartItem, error) {
	key := cartKey(sessionID)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var items []domain.CartItem
	if err2 := json.Unmarshal(data, &items); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart snapshot failed: %w", err2)
	}

	return items, nil
}

func (r RedisPersister) Save(ctx context.Context, sessionID string, items []domain.CartItem) error {
	key := cartKey(sessionID)
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(60)) * time.Minute
	ttl := r.baseTTL + jitter
	if ret := r.client.Set(ctx, key, string(data), ttl); ret.Err() != nil {
		return fmt.Errorf("redis set failed: %w", ret.Err())
	}
	return nil
}

func (r RedisPersister) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}
