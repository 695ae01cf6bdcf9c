// Frame reassembly from unordered, lossy fragments
package reassembly

import (
	"framelink/internal/atomics"
	"framelink/internal/global"
	"framelink/pkg/protocol"
	"time"

	"github.com/pbnjay/memory"
)

// Jump (in frames, either direction) treated as a new stream rather than reordering or loss
const resyncDistance int32 = 1 << 12

// Consecutive new frames behind the lag window, in ascending order, that mark a sender restart
const restartRunFrames int = 3

// Memory cap derived from the host: a fixed share of total RAM inside fixed bounds
func DefaultMaxBufferedBytes() (limit uint64) {
	limit = memory.TotalMemory() / global.BufferedFrameMemoryFrac
	limit = max(limit, global.MinBufferedFrameBytes)
	limit = min(limit, global.MaxBufferedFrameBytes)
	return
}

func New(namespace []string, cfg Config) (new *Reassembler) {
	if cfg.EvictionLag <= 0 {
		cfg.EvictionLag = global.DefaultEvictionLag
	}
	if cfg.IdleTimeout < 0 {
		cfg.IdleTimeout = 0
	}
	if cfg.MaxBufferedBytes == 0 {
		cfg.MaxBufferedBytes = DefaultMaxBufferedBytes()
	}

	new = &Reassembler{
		Namespace: append(append([]string(nil), namespace...), global.NSReasm),
		cfg:       cfg,
		frames:    make(map[uint32]*frameBuffer),
		closed:    make(map[uint32]struct{}),
	}
	return
}

// Active configuration after defaults
func (reasm *Reassembler) Config() (cfg Config) {
	cfg = reasm.cfg
	return
}

// Positive when a is ahead of b, tolerating uint32 wrap
func distance(a, b uint32) (delta int32) {
	delta = int32(a - b)
	return
}

// Handles one decoded fragment. The payload is copied, callers may reuse their buffer.
func (reasm *Reassembler) Push(header protocol.Header, payload []byte, now time.Time) (result Result) {
	fid := header.FrameID
	result.FrameID = fid
	result.TimestampMs = header.TimestampMs

	if header.TotalFragments == 0 || header.FragmentIndex >= header.TotalFragments {
		result.Rejected = true
		reasm.Metrics.Rejected.Add(1)
		return
	}

	if !reasm.tracking {
		reasm.tracking = true
		reasm.expected = fid
	}

	behind := distance(reasm.expected, fid)
	lagging := behind > int32(reasm.cfg.EvictionLag)
	if behind > resyncDistance || behind < -resyncDistance || (lagging && reasm.restarted(fid)) {
		reasm.resync(fid, &result)
		behind = 0
		lagging = false
	}

	if lagging {
		result.Late = true
		reasm.Metrics.Late.Add(1)
		return
	}
	reasm.lateRun = 0
	if _, done := reasm.closed[fid]; done {
		result.Duplicate = true
		reasm.Metrics.Duplicates.Add(1)
		return
	}

	// Loss estimation, arrivals behind the tracker never count
	if gap := distance(fid, reasm.expected); gap >= 0 {
		result.LostDelta = uint64(gap)
		reasm.expected = fid + 1
		if gap > 0 {
			reasm.Metrics.Lost.Add(uint64(gap))
		}
	}

	reasm.evictLagging(fid, &result)

	buffer, exists := reasm.frames[fid]
	if !exists {
		buffer = &frameBuffer{
			frameID:     fid,
			total:       header.TotalFragments,
			fragments:   make(map[uint16][]byte, header.TotalFragments),
			timestampMs: header.TimestampMs,
			firstSeen:   now,
		}
		reasm.frames[fid] = buffer
	} else if buffer.total != header.TotalFragments {
		result.Rejected = true
		reasm.Metrics.Rejected.Add(1)
		return
	}

	// Duplicate index overwrites
	if previous, seen := buffer.fragments[header.FragmentIndex]; seen {
		buffer.bytes -= uint64(len(previous))
		reasm.bufferedBytes -= uint64(len(previous))
	}
	buffer.fragments[header.FragmentIndex] = append([]byte(nil), payload...)
	buffer.bytes += uint64(len(payload))
	buffer.lastUpdate = now
	reasm.bufferedBytes += uint64(len(payload))
	reasm.Metrics.Fragments.Add(1)

	if len(buffer.fragments) == int(buffer.total) {
		result.Completed = true
		result.Frame = buffer.assemble()
		result.TimestampMs = buffer.timestampMs
		reasm.drop(fid)
		reasm.Metrics.Completed.Add(1)
	} else {
		reasm.enforceMemory(&result)
	}

	reasm.publishGauges()
	return
}

// Concatenates fragments in index order
func (buffer *frameBuffer) assemble() (frame []byte) {
	frame = make([]byte, 0, buffer.bytes)
	for index := uint16(0); index < buffer.total; index++ {
		frame = append(frame, buffer.fragments[index]...)
	}
	return
}

// Removes a buffer and remembers its id
func (reasm *Reassembler) drop(fid uint32) {
	if buffer, exists := reasm.frames[fid]; exists {
		reasm.bufferedBytes -= buffer.bytes
		delete(reasm.frames, fid)
	}
	reasm.closed[fid] = struct{}{}
}

// Tracks runs of late fragments. Stragglers from reordering arrive alone;
// a restarted sender produces one new frame after another behind the window.
func (reasm *Reassembler) restarted(fid uint32) (restart bool) {
	if reasm.lateRun > 0 && fid == reasm.lateLast {
		return
	}
	step := distance(fid, reasm.lateLast)
	if reasm.lateRun > 0 && step > 0 && step <= int32(reasm.cfg.EvictionLag) {
		reasm.lateRun++
	} else {
		reasm.lateRun = 1
	}
	reasm.lateLast = fid
	restart = reasm.lateRun >= restartRunFrames
	return
}

// Forgets all state when the stream jumps far from the tracker or restarts
func (reasm *Reassembler) resync(fid uint32, result *Result) {
	for id := range reasm.frames {
		delete(reasm.frames, id)
	}
	clear(reasm.closed)
	reasm.bufferedBytes = 0
	reasm.expected = fid
	reasm.lateRun = 0
	result.Resynced = true
	reasm.Metrics.Resyncs.Add(1)
}

// Frames and bytes currently held
func (reasm *Reassembler) Buffered() (frames int, bytes uint64) {
	frames = len(reasm.frames)
	bytes = reasm.bufferedBytes
	return
}

// Expected next frame id, false before the first fragment
func (reasm *Reassembler) Expected() (next uint32, tracking bool) {
	next = reasm.expected
	tracking = reasm.tracking
	return
}

func (reasm *Reassembler) publishGauges() {
	reasm.Metrics.BufferedFrames.Store(uint64(len(reasm.frames)))
	reasm.Metrics.BufferedBytes.Store(reasm.bufferedBytes)
	atomics.StoreMax(&reasm.Metrics.PeakBytes, reasm.bufferedBytes)
}
