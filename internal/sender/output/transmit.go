// Writes fragmented frames and periodic link snapshots to the receiver
package output

import (
	"context"
	"errors"
	"fmt"
	"framelink/internal/atomics"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"framelink/internal/network"
	"framelink/pkg/protocol"
	"net"
	"time"
)

func NewTransmitter(ctx context.Context, namespace []string, cfg TransmitConfig) (new *Transmitter, err error) {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = global.DefaultSendTimeout
	}
	if cfg.Encoding == "" {
		cfg.Encoding = protocol.EncodingJSON
	}

	new = &Transmitter{
		Namespace: append(append([]string(nil), namespace...), global.NSOut),
		encoding:  cfg.Encoding,
		timeout:   cfg.SendTimeout,
		Stats:     NewStats(time.Now(), global.SenderStatsInterval),
	}

	new.video, err = network.DialUDP(ctx, cfg.VideoAddress)
	if err != nil {
		new = nil
		return
	}
	new.side, err = network.DialUDP(ctx, cfg.MetricsAddress)
	if err != nil {
		_ = new.video.Close()
		new = nil
		return
	}
	return
}

// Sends every packet of one frame. Failed writes are logged and skipped.
func (transmitter *Transmitter) SendFrame(ctx context.Context, packets [][]byte) (sent int) {
	ctx = logctx.WithNamespace(ctx, transmitter.Namespace)
	transmitter.Stats.RecordFrame()

	for _, packet := range packets {
		err := transmitter.write(transmitter.video, packet)
		if err != nil {
			transmitter.Metrics.SendErrors.Add(1)
			logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
				"failed to send video fragment: %v\n", err)
		} else {
			sent++
			transmitter.Stats.RecordPacket(len(packet))
			transmitter.Metrics.Packets.Add(1)
			transmitter.Metrics.Bytes.Add(uint64(len(packet)))
			atomics.StoreMax(&transmitter.Metrics.MaxPacketBytes, uint64(len(packet)))
		}

		snapshot, fired := transmitter.Stats.Tick(time.Now())
		if fired {
			transmitter.sendSnapshot(ctx, snapshot)
		}
	}

	logctx.LogEvent(ctx, global.VerbosityData, global.InfoLog,
		"Sent %d/%d fragments to %s\n", sent, len(packets), transmitter.video.RemoteAddr())
	return
}

// Side-channel errors never reach the video path
func (transmitter *Transmitter) sendSnapshot(ctx context.Context, snapshot protocol.SenderSnapshot) {
	data, err := protocol.EncodeSnapshot(snapshot, transmitter.encoding)
	if err == nil {
		err = transmitter.write(transmitter.side, data)
	}
	if err != nil {
		transmitter.Metrics.SnapshotErrors.Add(1)
		logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
			"failed to send metrics snapshot: %v\n", err)
		return
	}
	transmitter.Metrics.Snapshots.Add(1)
}

// Deadline-bounded write
func (transmitter *Transmitter) write(conn *net.UDPConn, data []byte) (err error) {
	err = conn.SetWriteDeadline(time.Now().Add(transmitter.timeout))
	if err != nil {
		return
	}
	n, err := conn.Write(data)
	if err != nil {
		return
	}
	if n != len(data) {
		err = fmt.Errorf("short write: %d of %d bytes", n, len(data))
	}
	return
}

func (transmitter *Transmitter) Close() (err error) {
	if transmitter == nil {
		return
	}
	err = errors.Join(transmitter.video.Close(), transmitter.side.Close())
	return
}
