// Package ratelimit provides sliding-window request limiting for the
// retrieval API, with a Redis implementation for multi-instance
// deployments and an in-memory one for single-node and test use.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a key may perform another request within the
// window. Implementations fail open on backend errors: an unavailable
// limiter must not take the API down with it.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Memory is a per-process sliding window limiter.
type Memory struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

// NewMemory creates an in-memory limiter.
func NewMemory() *Memory {
	return &Memory{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records the request and reports whether it fits the window.
func (m *Memory) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-window)

	kept := m.windows[key][:0]
	for _, t := range m.windows[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= limit {
		m.windows[key] = kept
		return false, nil
	}
	m.windows[key] = append(kept, now)
	return true, nil
}
