package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/loginbot/core/logger"
)

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// Memory is a process-local Store with sliding expiry.
type Memory[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int64]memoryEntry[T]
	onSize  func(int)
}

// MemoryOption customises Memory.
type MemoryOption[T any] func(*Memory[T])

// WithClock replaces time.Now, mainly for tests.
func WithClock[T any](now func() time.Time) MemoryOption[T] {
	return func(m *Memory[T]) { m.now = now }
}

// WithSizeHook is called with the entry count after every change.
func WithSizeHook[T any](fn func(int)) MemoryOption[T] {
	return func(m *Memory[T]) { m.onSize = fn }
}

// NewMemory creates a Memory store. A non-positive ttl selects DefaultTTL.
func NewMemory[T any](ttl time.Duration, opts ...MemoryOption[T]) *Memory[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory[T]{ttl: ttl, now: time.Now, entries: make(map[int64]memoryEntry[T])}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the live entry for userID. Expired entries are removed.
func (m *Memory[T]) Get(_ context.Context, userID int64) (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	e, ok := m.entries[userID]
	if !ok {
		return zero, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, userID)
		m.reportLocked()
		return zero, false, nil
	}
	return e.value, true, nil
}

// Put stores value and restarts its TTL.
func (m *Memory[T]) Put(_ context.Context, userID int64, value T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = memoryEntry[T]{value: value, expiresAt: m.now().Add(m.ttl)}
	m.reportLocked()
	return nil
}

// Delete removes the entry for userID.
func (m *Memory[T]) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	m.reportLocked()
	return nil
}

// Len returns the number of stored entries, expired ones included until swept.
func (m *Memory[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (m *Memory[T]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, id)
			n++
		}
	}
	if n > 0 {
		m.reportLocked()
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (m *Memory[T]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Debug(ctx, logger.CompSession, "session.sweep", slog.Int("count", n))
			}
		}
	}
}

func (m *Memory[T]) reportLocked() {
	if m.onSize != nil {
		m.onSize(len(m.entries))
	}
}
