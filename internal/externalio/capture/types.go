package capture

import (
	"framelink/internal/queue/ring"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/gopacket/pcapgo"
)

// One received datagram
type Record struct {
	At          time.Time
	Source      *net.UDPAddr
	Destination *net.UDPAddr
	Payload     []byte
}

// Writes received datagrams into a pcap file from a background goroutine
type Writer struct {
	Namespace []string
	path      string
	file      *os.File
	pcap      *pcapgo.Writer
	queue     *ring.Queue[Record]
	Metrics   MetricStorage
}

type MetricStorage struct {
	Written atomic.Uint64
	Bytes   atomic.Uint64
	Dropped atomic.Uint64 // queue full
	Failed  atomic.Uint64 // encode or write error
}
