// Receive tasks for the video and metrics sockets
package listener

import (
	"context"
	"errors"
	"fmt"
	"framelink/internal/atomics"
	"framelink/internal/ebpf"
	"framelink/internal/externalio/capture"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"framelink/internal/network"
	"framelink/internal/receiver/reassembly"
	"framelink/internal/receiver/stats"
	"framelink/pkg/protocol"
	"net"
	"runtime/debug"
	"time"
)

const sweepInterval = 250 * time.Millisecond

// Binds the video socket. capture may be nil.
func NewVideo(ctx context.Context, namespace []string, cfg VideoConfig, receiver *stats.Receiver, frames FrameSink, packetCapture PacketCapture) (new *Video, err error) {
	conn, err := network.ListenUDP(ctx, cfg.Address, cfg.ReceiveBuffer)
	if err != nil {
		err = fmt.Errorf("bind failure on %s: %w", cfg.Address, err)
		return
	}

	ns := append(append([]string(nil), namespace...), global.NSListen, global.NSVideo)
	new = &Video{
		Namespace: ns,
		conn:      conn,
		local:     conn.LocalAddr().(*net.UDPAddr),
		reasm:     reassembly.New(ns, cfg.Reassembly),
		stats:     receiver,
		frames:    frames,
		capture:   packetCapture,
	}

	if size, err := network.ReceiveBufferSize(conn); err == nil {
		logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
			"Video socket %s receive buffer is %d bytes\n", new.local, size)
	}
	if cookie, err := ebpf.GetSocketCookie(conn); err == nil {
		logctx.LogEvent(ctx, global.VerbosityData, global.InfoLog,
			"Video socket %s has cookie %d\n", new.local, cookie)
	}

	if cfg.KernelFilter {
		filter, err := ebpf.AttachVideoFilter(conn)
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
				"Kernel packet filter not attached, continuing without it: %v\n", err)
		} else {
			new.filter = filter
		}
	}
	return
}

// Local bound address
func (video *Video) Addr() (addr *net.UDPAddr) {
	addr = video.local
	return
}

// Reads datagrams until ctx is done, then closes the socket
func (video *Video) Run(ctx context.Context) {
	ctx = logctx.WithNamespace(ctx, video.Namespace)
	defer video.close(ctx)

	buffer := make([]byte, global.VideoReadBufferSize)
	for {
		if ctx.Err() != nil {
			return
		}
		if stop := video.receiveOne(ctx, buffer); stop {
			return
		}
	}
}

func (video *Video) receiveOne(ctx context.Context, buffer []byte) (stop bool) {
	defer func() {
		// Record panics and continue listening
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "panic in video listener: %v\n%s", fatalError, stack)
		}
	}()

	err := video.conn.SetReadDeadline(time.Now().Add(global.ReceivePollInterval))
	if err != nil && errors.Is(err, net.ErrClosed) {
		stop = true
		return
	}

	endIndex, remoteAddr, err := video.conn.ReadFromUDP(buffer)
	now := time.Now()
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
			stop = true
			return
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			video.sweep(now)
			return
		}
		video.Metrics.ReadErrors.Add(1)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Failed reading data from socket: %v\n", err)
		return
	}

	video.handle(ctx, buffer[:endIndex], remoteAddr, now)
	if now.Sub(video.lastSweep) >= sweepInterval {
		video.sweep(now)
	}
	return
}

// Processes one datagram
func (video *Video) handle(ctx context.Context, datagram []byte, remoteAddr *net.UDPAddr, now time.Time) {
	video.stats.RecordPacket(len(datagram))
	video.Metrics.Bytes.Add(uint64(len(datagram)))

	if video.capture != nil {
		video.capture.Capture(capture.Record{
			At:          now,
			Source:      remoteAddr,
			Destination: video.local,
			Payload:     datagram,
		})
	}

	header, payload, err := protocol.Decode(datagram)
	if err != nil {
		video.stats.RecordMalformed()
		video.Metrics.InvalidPackets.Add(1)
		video.recordBusy(now)
		logctx.LogEvent(ctx, global.VerbosityData, global.WarnLog,
			"Dropped malformed packet from %s: %v\n", remoteAddr, err)
		return
	}
	video.Metrics.ValidPackets.Add(1)

	result := video.reasm.Push(header, payload, now)
	video.apply(ctx, result, now)
	video.recordBusy(now)
}

// Carries a reassembly outcome into the receiver statistics and the frame slot
func (video *Video) apply(ctx context.Context, result reassembly.Result, now time.Time) {
	switch {
	case result.Rejected:
		video.stats.RecordMalformed()
	case result.Late:
		video.stats.RecordLate()
	case result.Duplicate:
		video.stats.RecordDuplicate()
	}

	video.stats.RecordLoss(result.LostDelta)
	for reason, count := range result.Evicted {
		video.stats.RecordEvicted(string(reason), count)
	}

	if result.Resynced {
		logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
			"Frame id sequence restarted at %d, loss tracking reset\n", result.FrameID)
	}

	if result.Completed {
		video.stats.RecordCompletion(result.FrameID, result.TimestampMs, now)
		video.frames.Store(result.Frame)
		logctx.LogEvent(ctx, global.VerbosityFullData, global.InfoLog,
			"Frame %d complete (%d bytes)\n", result.FrameID, len(result.Frame))
	}
}

func (video *Video) sweep(now time.Time) {
	video.lastSweep = now
	evicted := video.reasm.Sweep(now)
	if evicted > 0 {
		video.stats.RecordEvicted(string(reassembly.EvictIdle), uint64(evicted))
	}
}

func (video *Video) recordBusy(start time.Time) {
	elapsed := uint64(time.Since(start))
	video.Metrics.BusyNs.Add(elapsed)
	atomics.StoreMax(&video.Metrics.MaxNs, elapsed)
}

func (video *Video) close(ctx context.Context) {
	err := video.filter.Close()
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog, "Failed detaching kernel filter: %v\n", err)
	}
	video.conn.Close()
}
