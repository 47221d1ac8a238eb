package storage

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryDelay returns how long to wait before re-running a transaction that
// lost a race on the given attempt, counted from 0. The delay doubles each
// attempt up to ceiling and is jittered into [d/2, d) so competing writers
// spread out instead of colliding again.
func RetryDelay(attempt int, base, ceiling time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt && d < ceiling; i++ {
		d *= 2
	}
	if ceiling > 0 && d > ceiling {
		d = ceiling
	}
	half := d / 2
	return half + rand.N(d-half)
}

// Backoff sleeps for RetryDelay, returning early with the context's error if
// it is cancelled first
func Backoff(ctx context.Context, attempt int, base, ceiling time.Duration) error {
	d := RetryDelay(attempt, base, ceiling)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
