package ring

import "sync/atomic"

type cell[T any] struct {
	seq  atomic.Uint64
	data T
}

// Bounded multi-producer multi-consumer queue. Producers never block, a full queue drops.
type Queue[T any] struct {
	Namespace []string
	Size      int
	mask      uint64
	buf       []cell[T]
	head      atomic.Uint64
	tail      atomic.Uint64
	notEmpty  chan struct{}
	Metrics   MetricStorage
}

type MetricStorage struct {
	Depth   atomic.Uint64 // Current items in queue
	Pushed  atomic.Uint64 // successful pushes in the interval
	Dropped atomic.Uint64 // pushes rejected because the queue was full
	Popped  atomic.Uint64 // successful pops in the interval
}
