package listener

import (
	"framelink/internal/ebpf"
	"framelink/internal/externalio/capture"
	"framelink/internal/receiver/reassembly"
	"framelink/internal/receiver/stats"
	"net"
	"sync/atomic"
	"time"
)

// Receives completed frames
type FrameSink interface {
	Store(frame []byte) (generation uint64)
}

// Receives raw datagrams for capture
type PacketCapture interface {
	Capture(record capture.Record) (queued bool)
}

type VideoConfig struct {
	Address       string
	ReceiveBuffer int
	KernelFilter  bool
	Reassembly    reassembly.Config
}

// Video socket reader. Owns its socket and the reassembler.
type Video struct {
	Namespace []string
	conn      *net.UDPConn
	local     *net.UDPAddr
	filter    *ebpf.Filter
	reasm     *reassembly.Reassembler
	stats     *stats.Receiver
	frames    FrameSink
	capture   PacketCapture
	lastSweep time.Time
	Metrics   MetricStorage

	kernelDrops atomic.Uint64 // filter map value at last collection
}

// Metrics side-channel socket reader
type Metrics struct {
	Namespace []string
	conn      *net.UDPConn
	view      *stats.ServerView
	Metrics   MetricStorage
}

type MetricStorage struct {
	BusyNs         atomic.Uint64 // sum of ns spent handling datagrams
	ValidPackets   atomic.Uint64 // datagrams that decoded
	InvalidPackets atomic.Uint64 // datagrams that failed to decode
	Bytes          atomic.Uint64
	MaxNs          atomic.Uint64 // max per-datagram handling time
	ReadErrors     atomic.Uint64
}
