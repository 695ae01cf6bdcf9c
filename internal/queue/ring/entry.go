// Lock-free ring buffer queue with power-of-two capacity
package ring

import (
	"context"
	"fmt"
	"framelink/internal/atomics"
	"framelink/internal/global"
	"runtime"
	"time"
)

// Creates a new queue. Capacity is rounded up to a power of two.
func New[T any](namespace []string, capacity uint64) (new *Queue[T], err error) {
	if capacity < 2 {
		err = fmt.Errorf("capacity must be greater than or equal to 2")
		return
	}
	size := uint64(1)
	for size < capacity {
		size <<= 1
	}

	buf := make([]cell[T], size)
	for i := uint64(0); i < size; i++ {
		buf[i].seq.Store(i)
	}

	new = &Queue[T]{
		Namespace: append(append([]string(nil), namespace...), global.NSQueue),
		Size:      int(size),
		mask:      size - 1,
		buf:       buf,
		notEmpty:  make(chan struct{}, 1),
	}
	return
}

// Attempts to write an element (non success = queue full)
func (queue *Queue[T]) Push(value T) (success bool) {
	var pos uint64
	var slot *cell[T]

	for {
		pos = queue.tail.Load()
		slot = &queue.buf[pos&queue.mask]
		seq := slot.seq.Load()

		if seq == pos {
			if queue.tail.CompareAndSwap(pos, pos+1) {
				break
			}
		} else if seq < pos {
			queue.Metrics.Dropped.Add(1)
			return
		} else {
			runtime.Gosched() // another producer is ahead, retry
		}
	}

	// Depth is raised before publishing so a racing pop never sees it at zero
	queue.Metrics.Depth.Add(1)
	slot.data = value
	slot.seq.Store(pos + 1)
	queue.Metrics.Pushed.Add(1)

	// notify blocked consumers, non-blocking
	select {
	case queue.notEmpty <- struct{}{}:
	default:
	}

	success = true
	return
}

// Non-blocking read. Returns false if empty.
func (queue *Queue[T]) TryPop() (out T, success bool) {
	for {
		pos := queue.head.Load()
		slot := &queue.buf[pos&queue.mask]
		seq := slot.seq.Load()

		switch {
		case seq == pos+1:
			if !queue.head.CompareAndSwap(pos, pos+1) {
				continue
			}
			out = slot.data
			var zero T
			slot.data = zero
			slot.seq.Store(pos + queue.mask + 1)

			atomics.Subtract(&queue.Metrics.Depth, 1, 4)
			queue.Metrics.Popped.Add(1)
			success = true
			return
		case seq < pos+1:
			return
		default:
			runtime.Gosched() // another consumer is ahead, retry
		}
	}
}

// Blocks until an element is available or ctx is done
func (queue *Queue[T]) Pop(ctx context.Context) (out T, success bool) {
	for {
		out, success = queue.TryPop()
		if success {
			queue.signalIfReady()
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-queue.notEmpty:
		}
	}
}

// Passes the wake-up on when more elements remain for other consumers
func (queue *Queue[T]) signalIfReady() {
	pos := queue.head.Load()
	if queue.buf[pos&queue.mask].seq.Load() != pos+1 {
		return
	}
	select {
	case queue.notEmpty <- struct{}{}:
	default:
	}
}

// Current number of queued elements
func (queue *Queue[T]) Len() (depth int) {
	depth = int(queue.Metrics.Depth.Load())
	return
}

// Waits for consumers to empty the queue, false on timeout or cancellation
func (queue *Queue[T]) WaitEmpty(ctx context.Context, timeout time.Duration) (empty bool) {
	empty, _ = atomics.WaitUntilZero(ctx, &queue.Metrics.Depth, timeout)
	return
}
