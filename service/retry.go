package service

import (
	"context"
	"math/rand/v2"
	"time"
)

// DefaultRetryBudget bounds the optimistic write attempts per operation.
const DefaultRetryBudget = 10

const (
	backoffBase = 5 * time.Millisecond
	backoffCap  = 100 * time.Millisecond
)

// Backoff returns the pause before retry attempt n (n >= 1).
type Backoff func(attempt int) time.Duration

// JitteredBackoff grows exponentially from a few milliseconds, capped, and
// waits a random duration in [d/2, d] so colliding writers spread out.
func JitteredBackoff(attempt int) time.Duration {
	d := backoffBase << min(attempt, 5)
	if d > backoffCap {
		d = backoffCap
	}
	return d/2 + rand.N(d/2+1)
}

// NoBackoff retries immediately.
func NoBackoff(int) time.Duration { return 0 }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
