package state

import (
	"context"
	"time"
)

// DefaultTTL is the idle lifetime of a conversation when none is configured.
const DefaultTTL = 30 * time.Minute

// Store persists one value of T per user. Put refreshes the entry's TTL.
type Store[T any] interface {
	Get(ctx context.Context, userID int64) (T, bool, error)
	Put(ctx context.Context, userID int64, value T) error
	Delete(ctx context.Context, userID int64) error
}
