package atomics

import (
	"sync/atomic"
)

// Subtracts value from the atomic source, saturating at zero.
// Returns false if contention outlasted maxRetries CAS attempts.
func Subtract(source *atomic.Uint64, value uint64, maxRetries int) (success bool) {
	for i := 0; i < maxRetries; i++ {
		current := source.Load()
		if current == 0 {
			success = true
			return
		}

		newValue := uint64(0)
		if value < current {
			newValue = current - value
		}

		if source.CompareAndSwap(current, newValue) {
			success = true
			return
		}
	}
	return
}

// Raises the stored value to candidate if candidate is larger. Returns the value now held.
func StoreMax(target *atomic.Uint64, candidate uint64) (held uint64) {
	for {
		held = target.Load()
		if candidate <= held {
			return
		}
		if target.CompareAndSwap(held, candidate) {
			held = candidate
			return
		}
	}
}
