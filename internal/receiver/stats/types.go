package stats

import (
	"framelink/pkg/protocol"
	"sync"
	"time"
)

// Running receive-side link statistics. Safe for concurrent use.
type Receiver struct {
	Namespace []string
	mu        sync.Mutex

	packetsReceived uint64
	bytesReceived   uint64
	framesDecoded   uint64
	framesLost      uint64
	malformed       uint64
	late            uint64
	duplicates      uint64
	evicted         map[string]uint64

	fps       *Window
	delay     *Window
	lastFPS   float64
	lastDelay int64

	haveCompletion bool
	lastCompletion time.Time
	lastFrameID    int64
}

// Consistent copy of receiver statistics
type ReceiverSnapshot struct {
	PacketsReceived uint64  `json:"packets_received"`
	FramesDecoded   uint64  `json:"frames_decoded"`
	FramesLost      uint64  `json:"frames_lost_estimated"`
	BytesReceived   uint64  `json:"bytes_received"`
	LastFPS         float64 `json:"last_fps"`
	AvgFPS          float64 `json:"avg_fps"`
	LastDelayMs     int64   `json:"last_delay_ms"`
	AvgDelayMs      int64   `json:"avg_delay_ms"`
	LastFrameID     int64   `json:"last_frame_id"`

	MalformedPackets uint64            `json:"malformed_packets"`
	LateFragments    uint64            `json:"late_fragments"`
	DuplicateFrags   uint64            `json:"duplicate_fragments"`
	EvictedFrames    map[string]uint64 `json:"evicted_frames"`
	DelayP50Ms       float64           `json:"delay_p50_ms"`
	DelayP95Ms       float64           `json:"delay_p95_ms"`
	DelayP99Ms       float64           `json:"delay_p99_ms"`
}

// Latest sender-reported statistics, merged field by field
type ServerView struct {
	Namespace []string
	mu       sync.Mutex
	snapshot protocol.SenderSnapshot
	updates  uint64
	dropped  uint64
	lastSeen time.Time
}
