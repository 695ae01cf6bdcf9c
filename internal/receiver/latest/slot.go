// Holder for the most recent complete frame
package latest

import (
	"context"
	"sync"
)

// Single-frame slot. Publishing replaces the whole frame; readers never see partial data.
type Slot struct {
	mu         sync.Mutex
	frame      []byte
	generation uint64
	changed    chan struct{} // closed and replaced on every publish
}

func New() (new *Slot) {
	new = &Slot{changed: make(chan struct{})}
	return
}

// Replaces the frame. The slot keeps the slice, callers must not modify it afterwards.
func (slot *Slot) Store(frame []byte) (generation uint64) {
	slot.mu.Lock()
	defer slot.mu.Unlock()

	slot.frame = frame
	slot.generation++
	generation = slot.generation

	close(slot.changed)
	slot.changed = make(chan struct{})
	return
}

// Returns the current frame and its generation. ok is false before the first frame.
// The returned slice must be treated as read-only.
func (slot *Slot) Load() (frame []byte, generation uint64, ok bool) {
	slot.mu.Lock()
	defer slot.mu.Unlock()

	frame = slot.frame
	generation = slot.generation
	ok = generation > 0
	return
}

// Blocks until a frame newer than after is published or ctx ends
func (slot *Slot) WaitNewer(ctx context.Context, after uint64) (frame []byte, generation uint64, err error) {
	for {
		slot.mu.Lock()
		if slot.generation > after {
			frame = slot.frame
			generation = slot.generation
			slot.mu.Unlock()
			return
		}
		changed := slot.changed
		slot.mu.Unlock()

		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-changed:
		}
	}
}
