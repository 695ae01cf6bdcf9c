// Helper functions that deal with atomic variables and their values
package atomics

import (
	"context"
	"sync/atomic"
	"time"
)

// Waits until atomic value is 0 three consecutive times in a row.
// Gives up on timeout or when ctx is cancelled.
func WaitUntilZero(ctx context.Context, value *atomic.Uint64, timeout time.Duration) (reachedZero bool, lastValue uint64) {
	const successfulStreakCount = 3

	backoff := 10 * time.Millisecond
	const maxBackoff = 500 * time.Millisecond

	deadline := time.Now().Add(timeout)
	zeroStreak := 0

	for {
		lastValue = value.Load()
		if lastValue == 0 {
			zeroStreak++
			if zeroStreak >= successfulStreakCount {
				reachedZero = true
				return
			}
		} else {
			zeroStreak = 0
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}

		timer := time.NewTimer(min(backoff, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		backoff = min(backoff*2, maxBackoff)
	}
}
