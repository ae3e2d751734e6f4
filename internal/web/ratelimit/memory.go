package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process token bucket per key. Each key starts with limit
// tokens; tokens come back continuously over the window. A background sweep
// drops buckets that have sat idle for two windows.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	stop    chan struct{}
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewMemory creates an in-memory limiter allowing limit attempts per window.
func NewMemory(limit int, window time.Duration) *Memory {
	m := &Memory{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		stop:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Allow implements Limiter. It never returns an error.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	b, ok := m.buckets[key]
	if !ok {
		m.buckets[key] = &bucket{tokens: m.limit - 1, lastRefill: now}
		return Decision{Allowed: true, Remaining: m.limit - 1, RetryAt: now.Add(m.window)}, nil
	}

	refill := int(float64(m.limit) * now.Sub(b.lastRefill).Seconds() / m.window.Seconds())
	if refill > 0 {
		b.tokens += refill
		if b.tokens > m.limit {
			b.tokens = m.limit
		}
		b.lastRefill = now
	}

	if b.tokens == 0 {
		return Decision{RetryAt: b.lastRefill.Add(m.window)}, nil
	}
	b.tokens--
	return Decision{Allowed: true, Remaining: b.tokens, RetryAt: b.lastRefill.Add(m.window)}, nil
}

func (m *Memory) sweep() {
	ticker := time.NewTicker(2 * m.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			cutoff := time.Now().Add(-2 * m.window)
			for key, b := range m.buckets {
				if b.lastRefill.Before(cutoff) {
					delete(m.buckets, key)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// Close stops the sweep goroutine.
func (m *Memory) Close() error {
	close(m.stop)
	return nil
}
