package stats

import (
	"framelink/internal/calc"

	"github.com/gammazero/deque"
	"github.com/influxdata/tdigest"
)

// Fixed-size sliding sample window, oldest samples drop first
type Window struct {
	size    int
	samples deque.Deque[float64]
}

func NewWindow(size int) (window *Window) {
	if size <= 0 {
		size = 1
	}
	window = &Window{size: size}
	return
}

func (window *Window) Add(sample float64) {
	window.samples.PushBack(sample)
	for window.samples.Len() > window.size {
		window.samples.PopFront()
	}
}

func (window *Window) Len() (count int) {
	count = window.samples.Len()
	return
}

// Copy of samples, oldest first
func (window *Window) Values() (values []float64) {
	values = make([]float64, window.samples.Len())
	for i := range values {
		values[i] = window.samples.At(i)
	}
	return
}

// Arithmetic mean, zero when empty
func (window *Window) Mean() (mean float64) {
	mean = calc.TrimmedMean(window.Values(), 0)
	return
}

// Estimated quantiles over the window, zeros when empty
func (window *Window) Quantiles(quantiles ...float64) (values []float64) {
	values = make([]float64, len(quantiles))
	if window.samples.Len() == 0 {
		return
	}

	digest := tdigest.NewWithCompression(100)
	for i := 0; i < window.samples.Len(); i++ {
		digest.Add(window.samples.At(i), 1)
	}
	for i, quantile := range quantiles {
		values[i] = digest.Quantile(quantile)
	}
	return
}
