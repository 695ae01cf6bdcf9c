// Basic calculation functions
package calc

import (
	"math"
	"sort"
)

// Numeric types accepted by the window helpers
type Number interface {
	~int | ~int64 | ~uint32 | ~uint64 | ~float64
}

// Calculates mean of supplied values after removing percentage of extreme values (post-sort).
// A trimPercent of zero is the plain arithmetic mean.
func TrimmedMean[T Number](values []T, trimPercent float64) (mean float64) {
	if trimPercent < 0 {
		trimPercent = 0
	}

	n := len(values)
	if n == 0 {
		return
	}

	nums := make([]float64, n)
	for i, v := range values {
		nums[i] = float64(v)
	}
	sort.Float64s(nums)

	// How many to trim from each end
	trimCount := int(float64(n) * trimPercent)
	if trimCount*2 >= n {
		trimCount = (n - 1) / 2
	}

	var sum float64
	kept := nums[trimCount : n-trimCount]
	for _, v := range kept {
		sum += v
	}

	mean = sum / float64(len(kept))
	return
}

// Returns smallest and largest value, zeroes for an empty list
func MinMax[T Number](values []T) (lowest, highest T) {
	for i, v := range values {
		if i == 0 || v < lowest {
			lowest = v
		}
		if i == 0 || v > highest {
			highest = v
		}
	}
	return
}

// Kilobits per second for a byte count over elapsed seconds, truncated
func BitrateKbps(bytes uint64, elapsedSeconds float64) (kbps int64) {
	if elapsedSeconds <= 0 {
		return
	}
	kbps = int64(float64(bytes) * 8 / elapsedSeconds / 1000)
	return
}

// Rounds to the given number of decimal places
func Round(value float64, places int) (rounded float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		rounded = 0
		return
	}
	scale := math.Pow(10, float64(places))
	rounded = math.Round(value*scale) / scale
	return
}
