// Package ratelimit throttles repeated login attempts. Keys are client
// addresses; the admin surface has exactly one unauthenticated endpoint and
// this package exists to protect it.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether another attempt under the key may proceed now.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Decision is the verdict for a single attempt.
type Decision struct {
	Allowed bool
	// Remaining attempts before the key is throttled.
	Remaining int
	// RetryAt is when a throttled key becomes usable again.
	RetryAt time.Time
}
