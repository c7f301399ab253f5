package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores JSON-encoded values under prefix+userID with a key TTL.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis store. A non-positive ttl selects DefaultTTL.
func NewRedis[T any](client *redis.Client, prefix string, ttl time.Duration) *Redis[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis[T]{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis[T]) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

// Get loads and decodes the value for userID.
func (r *Redis[T]) Get(ctx context.Context, userID int64) (T, bool, error) {
	var v T
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("redis get session: %w", err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decode session: %w", err)
	}
	return v, true, nil
}

// Put encodes value and stores it with a fresh TTL.
func (r *Redis[T]) Put(ctx context.Context, userID int64, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Delete removes the value for userID.
func (r *Redis[T]) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
