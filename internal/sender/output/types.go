package output

import (
	"framelink/pkg/protocol"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Sender-side running link statistics. Safe for concurrent use.
type Stats struct {
	mu       sync.Mutex
	interval time.Duration

	start    time.Time
	lastTick time.Time

	frames      uint64
	bytesSent   uint64
	packetsSent uint64
	rateBytes   uint64 // bytes since the last bitrate computation

	snapshot protocol.SenderSnapshot
}

type TransmitConfig struct {
	VideoAddress   string
	MetricsAddress string
	Encoding       string        // side-channel snapshot encoding
	SendTimeout    time.Duration // bound on each socket write
}

// Video and metrics side-channel send path
type Transmitter struct {
	Namespace []string
	video     *net.UDPConn
	side      *net.UDPConn
	encoding  string
	timeout   time.Duration
	Stats     *Stats
	Metrics   MetricStorage
}

type MetricStorage struct {
	Packets        atomic.Uint64
	Bytes          atomic.Uint64
	MaxPacketBytes atomic.Uint64
	SendErrors     atomic.Uint64
	Snapshots      atomic.Uint64
	SnapshotErrors atomic.Uint64
}
