// Receive-side running statistics and the merged sender view
package stats

import (
	"framelink/internal/global"
	"time"
)

func NewReceiver(namespace []string) (new *Receiver) {
	new = &Receiver{
		Namespace:   namespace,
		evicted:     make(map[string]uint64),
		fps:         NewWindow(global.StatsWindowSize),
		delay:       NewWindow(global.StatsWindowSize),
		lastFrameID: -1,
	}
	return
}

// Counts a datagram before it is parsed
func (receiver *Receiver) RecordPacket(size int) {
	receiver.mu.Lock()
	defer receiver.mu.Unlock()
	receiver.packetsReceived++
	receiver.bytesReceived += uint64(size)
}

func (receiver *Receiver) RecordMalformed() {
	receiver.mu.Lock()
	defer receiver.mu.Unlock()
	receiver.malformed++
}

func (receiver *Receiver) RecordLate() {
	receiver.mu.Lock()
	defer receiver.mu.Unlock()
	receiver.late++
}

func (receiver *Receiver) RecordDuplicate() {
	receiver.mu.Lock()
	defer receiver.mu.Unlock()
	receiver.duplicates++
}

func (receiver *Receiver) RecordLoss(frames uint64) {
	if frames == 0 {
		return
	}
	receiver.mu.Lock()
	defer receiver.mu.Unlock()
	receiver.framesLost += frames
}

func (receiver *Receiver) RecordEvicted(kind string, frames uint64) {
	if frames == 0 {
		return
	}
	receiver.mu.Lock()
	defer receiver.mu.Unlock()
	receiver.evicted[kind] += frames
}

// Records a reassembled frame. headerTs of zero skips the delay sample.
func (receiver *Receiver) RecordCompletion(frameID uint32, headerTs uint64, now time.Time) {
	receiver.mu.Lock()
	defer receiver.mu.Unlock()

	receiver.framesDecoded++
	receiver.lastFrameID = int64(frameID)

	if receiver.haveCompletion {
		dt := now.Sub(receiver.lastCompletion).Seconds()
		if dt > 0 {
			receiver.lastFPS = 1 / dt
			receiver.fps.Add(receiver.lastFPS)
		}
	}
	receiver.haveCompletion = true
	receiver.lastCompletion = now

	if headerTs != 0 {
		delay := max(now.UnixMilli()-int64(headerTs), 0)
		receiver.lastDelay = delay
		receiver.delay.Add(float64(delay))
	}
}

func (receiver *Receiver) Snapshot() (snapshot ReceiverSnapshot) {
	receiver.mu.Lock()
	defer receiver.mu.Unlock()

	snapshot = ReceiverSnapshot{
		PacketsReceived:  receiver.packetsReceived,
		FramesDecoded:    receiver.framesDecoded,
		FramesLost:       receiver.framesLost,
		BytesReceived:    receiver.bytesReceived,
		LastFPS:          receiver.lastFPS,
		AvgFPS:           receiver.fps.Mean(),
		LastDelayMs:      receiver.lastDelay,
		AvgDelayMs:       int64(receiver.delay.Mean()),
		LastFrameID:      receiver.lastFrameID,
		MalformedPackets: receiver.malformed,
		LateFragments:    receiver.late,
		DuplicateFrags:   receiver.duplicates,
		EvictedFrames:    make(map[string]uint64, len(receiver.evicted)),
	}
	for kind, count := range receiver.evicted {
		snapshot.EvictedFrames[kind] = count
	}

	percentiles := receiver.delay.Quantiles(0.50, 0.95, 0.99)
	snapshot.DelayP50Ms = percentiles[0]
	snapshot.DelayP95Ms = percentiles[1]
	snapshot.DelayP99Ms = percentiles[2]
	return
}
