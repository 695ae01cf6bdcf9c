// pcap capture of received video datagrams
package capture

import (
	"context"
	"fmt"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"framelink/internal/queue/ring"
	"net"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const (
	snapLength   uint32 = 65536
	queueSize    uint64 = 4096
	hopLimit     uint8  = 64
	drainTimeout        = 2 * time.Second
)

// Opens (truncating) the capture file and writes the pcap header. Returns nil nil if no path.
func NewWriter(namespace []string, path string) (writer *Writer, err error) {
	if path == "" {
		return
	}

	ns := append(append([]string(nil), namespace...), global.NSoCapture)
	queue, err := ring.New[Record](ns, queueSize)
	if err != nil {
		err = fmt.Errorf("failed creating capture queue: %w", err)
		return
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
	if err != nil {
		err = fmt.Errorf("failed opening capture file: %w", err)
		return
	}

	pcap := pcapgo.NewWriter(file)
	err = pcap.WriteFileHeader(snapLength, layers.LinkTypeRaw)
	if err != nil {
		file.Close()
		err = fmt.Errorf("failed writing pcap header: %w", err)
		return
	}

	writer = &Writer{
		Namespace: ns,
		path:      path,
		file:      file,
		pcap:      pcap,
		queue:     queue,
	}
	return
}

// Queues a datagram for writing. Payload is copied.
func (writer *Writer) Capture(record Record) (queued bool) {
	if writer == nil {
		return
	}
	record.Payload = append([]byte(nil), record.Payload...)
	queued = writer.queue.Push(record)
	if !queued {
		writer.Metrics.Dropped.Add(1)
	}
	return
}

// Writes queued datagrams until ctx is done
func (writer *Writer) Run(ctx context.Context) {
	if writer == nil {
		return
	}
	ctx = logctx.AppendCtxTag(ctx, global.NSoCapture)

	for {
		record, ok := writer.queue.Pop(ctx)
		if !ok {
			return
		}
		writer.write(ctx, record)
	}
}

func (writer *Writer) write(ctx context.Context, record Record) {
	defer func() {
		if fatalError := recover(); fatalError != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in capture writer: %v\n%s", fatalError, debug.Stack())
		}
	}()

	packet, err := encodePacket(record)
	if err != nil {
		writer.Metrics.Failed.Add(1)
		logctx.LogEvent(ctx, global.VerbosityData, global.WarnLog,
			"failed encoding captured datagram: %v\n", err)
		return
	}

	captureLength := len(packet)
	if captureLength > int(snapLength) {
		captureLength = int(snapLength)
	}
	err = writer.pcap.WritePacket(gopacket.CaptureInfo{
		Timestamp:     record.At,
		CaptureLength: captureLength,
		Length:        len(packet),
	}, packet[:captureLength])
	if err != nil {
		writer.Metrics.Failed.Add(1)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"failed writing capture file %s: %v\n", writer.path, err)
		return
	}
	writer.Metrics.Written.Add(1)
	writer.Metrics.Bytes.Add(uint64(len(packet)))
}

// Builds a raw IP+UDP packet around the datagram payload
func encodePacket(record Record) (packet []byte, err error) {
	if record.Source == nil || record.Destination == nil {
		err = fmt.Errorf("missing datagram address")
		return
	}

	udp := &layers.UDP{
		SrcPort: layers.UDPPort(record.Source.Port),
		DstPort: layers.UDPPort(record.Destination.Port),
	}

	var network gopacket.NetworkLayer
	var ipLayer gopacket.SerializableLayer
	if source4 := record.Source.IP.To4(); source4 != nil {
		destination4 := record.Destination.IP.To4()
		if destination4 == nil {
			destination4 = net.IPv4zero.To4()
		}
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      hopLimit,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    source4,
			DstIP:    destination4,
		}
		network, ipLayer = ip, ip
	} else {
		destination6 := record.Destination.IP.To16()
		if destination6 == nil || record.Destination.IP.To4() != nil {
			destination6 = net.IPv6unspecified
		}
		ip := &layers.IPv6{
			Version:    6,
			NextHeader: layers.IPProtocolUDP,
			HopLimit:   hopLimit,
			SrcIP:      record.Source.IP.To16(),
			DstIP:      destination6,
		}
		network, ipLayer = ip, ip
	}

	err = udp.SetNetworkLayerForChecksum(network)
	if err != nil {
		err = fmt.Errorf("failed setting checksum layer: %w", err)
		return
	}

	buffer := gopacket.NewSerializeBuffer()
	options := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	err = gopacket.SerializeLayers(buffer, options, ipLayer, udp, gopacket.Payload(record.Payload))
	if err != nil {
		err = fmt.Errorf("failed serializing packet: %w", err)
		return
	}
	packet = buffer.Bytes()
	return
}

// Writes what is still queued and closes the file
func (writer *Writer) Close(ctx context.Context) (err error) {
	if writer == nil {
		return
	}
	deadline := time.Now().Add(drainTimeout)
	for time.Now().Before(deadline) {
		record, ok := writer.queue.TryPop()
		if !ok {
			break
		}
		writer.write(ctx, record)
	}
	err = writer.file.Close()
	if err != nil {
		err = fmt.Errorf("failed closing capture file: %w", err)
	}
	return
}
