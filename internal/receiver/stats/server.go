package stats

import (
	"framelink/pkg/protocol"
	"time"
)

func NewServerView(namespace []string) (new *ServerView) {
	new = &ServerView{Namespace: namespace}
	return
}

// Applies the fields present in the update, others keep their value
func (view *ServerView) Merge(update protocol.SnapshotUpdate, now time.Time) {
	view.mu.Lock()
	defer view.mu.Unlock()

	apply := func(target *int64, value *int64) {
		if value != nil {
			*target = *value
		}
	}
	apply(&view.snapshot.FPS, update.FPS)
	apply(&view.snapshot.BitrateKbps, update.BitrateKbps)
	apply(&view.snapshot.BytesSent, update.BytesSent)
	apply(&view.snapshot.PacketsSent, update.PacketsSent)
	apply(&view.snapshot.TimestampMs, update.TimestampMs)

	view.updates++
	view.lastSeen = now
}

// Counts a side-channel payload that could not be decoded
func (view *ServerView) RecordDropped() {
	view.mu.Lock()
	defer view.mu.Unlock()
	view.dropped++
}

func (view *ServerView) Snapshot() (snapshot protocol.SenderSnapshot) {
	view.mu.Lock()
	defer view.mu.Unlock()
	snapshot = view.snapshot
	return
}

// Merged update count, dropped payload count, and time of the last merge
func (view *ServerView) Counters() (updates, dropped uint64, lastSeen time.Time) {
	view.mu.Lock()
	defer view.mu.Unlock()
	updates = view.updates
	dropped = view.dropped
	lastSeen = view.lastSeen
	return
}
