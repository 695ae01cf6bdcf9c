package output

import (
	"framelink/pkg/protocol"
	"time"
)

func NewStats(now time.Time, interval time.Duration) (new *Stats) {
	new = &Stats{
		interval: interval,
		start:    now,
		lastTick: now,
	}
	new.snapshot.TimestampMs = now.UnixMilli()
	return
}

// Counts one emitted packet of n bytes
func (stats *Stats) RecordPacket(n int) {
	stats.mu.Lock()
	defer stats.mu.Unlock()
	stats.bytesSent += uint64(n)
	stats.packetsSent++
	stats.rateBytes += uint64(n)
}

// Counts one produced frame
func (stats *Stats) RecordFrame() {
	stats.mu.Lock()
	defer stats.mu.Unlock()
	stats.frames++
}

// Recomputes fps and bitrate once the interval has elapsed since the last recomputation
func (stats *Stats) Tick(now time.Time) (snapshot protocol.SenderSnapshot, fired bool) {
	stats.mu.Lock()
	defer stats.mu.Unlock()

	dt := now.Sub(stats.lastTick)
	if dt >= stats.interval && dt > 0 {
		fired = true

		elapsed := now.Sub(stats.start).Seconds()
		if elapsed > 0 {
			stats.snapshot.FPS = int64(float64(stats.frames) / elapsed)
		}
		stats.snapshot.BitrateKbps = int64(float64(stats.rateBytes) * 8 / dt.Seconds() / 1000)
		stats.rateBytes = 0
		stats.lastTick = now
	}

	stats.snapshot.BytesSent = int64(stats.bytesSent)
	stats.snapshot.PacketsSent = int64(stats.packetsSent)
	stats.snapshot.TimestampMs = now.UnixMilli()
	snapshot = stats.snapshot
	return
}

// Last computed values with current counters
func (stats *Stats) Snapshot() (snapshot protocol.SenderSnapshot) {
	stats.mu.Lock()
	defer stats.mu.Unlock()
	snapshot = stats.snapshot
	snapshot.BytesSent = int64(stats.bytesSent)
	snapshot.PacketsSent = int64(stats.packetsSent)
	return
}
