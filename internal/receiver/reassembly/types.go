package reassembly

import (
	"sync/atomic"
	"time"
)

// Why a partially received frame was dropped
type EvictReason string

const (
	EvictLag    EvictReason = "lag"    // too far behind the newest frame
	EvictIdle   EvictReason = "idle"   // no fragment within the idle timeout
	EvictMemory EvictReason = "memory" // buffered bytes exceeded the cap
)

// Rebuilds whole frames out of fragments. Not safe for concurrent Push/Sweep,
// the owning listener is the only writer. Metrics may be collected from any goroutine.
type Reassembler struct {
	Namespace []string
	cfg       Config

	frames        map[uint32]*frameBuffer
	bufferedBytes uint64

	// Loss tracker, expected next frame id
	tracking bool
	expected uint32

	// Recently completed or evicted ids, never reinserted
	closed map[uint32]struct{}

	// Late arrivals opening ascending new frames, see restarted
	lateRun  int
	lateLast uint32

	Metrics MetricStorage
}

type Config struct {
	EvictionLag      int           // frames further behind the tracker than this are dropped
	IdleTimeout      time.Duration // 0 disables idle eviction
	MaxBufferedBytes uint64        // 0 picks a value from system memory
}

// Partial frame awaiting fragments
type frameBuffer struct {
	frameID     uint32
	total       uint16
	fragments   map[uint16][]byte
	bytes       uint64
	timestampMs uint64
	firstSeen   time.Time
	lastUpdate  time.Time
}

// Outcome of one Push
type Result struct {
	Completed   bool
	Frame       []byte
	FrameID     uint32
	TimestampMs uint64
	LostDelta   uint64                 // newly presumed lost frames
	Evicted     map[EvictReason]uint64 // frames dropped while handling this fragment
	Late        bool                   // fragment for a frame already behind the lag window
	Duplicate   bool                   // fragment for a frame already completed or evicted
	Rejected    bool                   // inconsistent fragment header
	Resynced    bool                   // tracker restarted after a far jump or a sender restart
}

type MetricStorage struct {
	Fragments      atomic.Uint64 // accepted fragments
	Completed      atomic.Uint64
	Lost           atomic.Uint64
	Late           atomic.Uint64
	Duplicates     atomic.Uint64
	Rejected       atomic.Uint64
	Resyncs        atomic.Uint64
	EvictedLag     atomic.Uint64
	EvictedIdle    atomic.Uint64
	EvictedMemory  atomic.Uint64
	BufferedFrames atomic.Uint64 // gauge
	BufferedBytes  atomic.Uint64 // gauge
	PeakBytes      atomic.Uint64 // highest buffered bytes in the interval
}
