package listener

import (
	"context"
	"errors"
	"fmt"
	"framelink/internal/atomics"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"framelink/internal/network"
	"framelink/internal/receiver/stats"
	"framelink/pkg/protocol"
	"net"
	"runtime/debug"
	"time"
)

// Binds the metrics side-channel socket
func NewMetrics(ctx context.Context, namespace []string, address string, view *stats.ServerView) (new *Metrics, err error) {
	conn, err := network.ListenUDP(ctx, address, 0)
	if err != nil {
		err = fmt.Errorf("bind failure on %s: %w", address, err)
		return
	}

	new = &Metrics{
		Namespace: append(append([]string(nil), namespace...), global.NSListen, global.NSSideChan),
		conn:      conn,
		view:      view,
	}
	return
}

// Local bound address
func (side *Metrics) Addr() (addr *net.UDPAddr) {
	addr = side.conn.LocalAddr().(*net.UDPAddr)
	return
}

// Reads sender snapshots until ctx is done, then closes the socket
func (side *Metrics) Run(ctx context.Context) {
	ctx = logctx.WithNamespace(ctx, side.Namespace)
	defer side.conn.Close()

	buffer := make([]byte, global.MetricsReadBufferSize)
	for {
		if ctx.Err() != nil {
			return
		}
		if stop := side.receiveOne(ctx, buffer); stop {
			return
		}
	}
}

func (side *Metrics) receiveOne(ctx context.Context, buffer []byte) (stop bool) {
	defer func() {
		// Record panics and continue listening
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "panic in metrics listener: %v\n%s", fatalError, stack)
		}
	}()

	err := side.conn.SetReadDeadline(time.Now().Add(global.ReceivePollInterval))
	if err != nil && errors.Is(err, net.ErrClosed) {
		stop = true
		return
	}

	endIndex, remoteAddr, err := side.conn.ReadFromUDP(buffer)
	start := time.Now()
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
			stop = true
			return
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return
		}
		side.Metrics.ReadErrors.Add(1)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Failed reading data from socket: %v\n", err)
		return
	}
	side.Metrics.Bytes.Add(uint64(endIndex))

	update, err := protocol.DecodeSnapshot(buffer[:endIndex])
	if err != nil {
		side.view.RecordDropped()
		side.Metrics.InvalidPackets.Add(1)
		logctx.LogEvent(ctx, global.VerbosityData, global.WarnLog,
			"Dropped undecodable metrics record from %s: %v\n", remoteAddr, err)
		side.recordBusy(start)
		return
	}

	side.view.Merge(update, start)
	side.Metrics.ValidPackets.Add(1)
	side.recordBusy(start)
	return
}

func (side *Metrics) recordBusy(start time.Time) {
	elapsed := uint64(time.Since(start))
	side.Metrics.BusyNs.Add(elapsed)
	atomics.StoreMax(&side.Metrics.MaxNs, elapsed)
}
