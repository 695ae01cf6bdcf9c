package sender

import (
	"context"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"framelink/pkg/protocol"
	"runtime/debug"
	"time"
)

// Capture, fragment, send and rate limit until ctx is done
func (daemon *Daemon) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frameStart := time.Now()
		if !daemon.sendOne(ctx) {
			sleepCtx(ctx, global.SourceRetryPause)
			continue
		}

		limit := daemon.settings().FPSLimit
		if limit > 0 {
			frameTime := time.Duration(float64(time.Second) / limit)
			sleepCtx(ctx, frameTime-time.Since(frameStart))
		}
	}
}

// Sends a single frame, reports false when the source produced nothing usable
func (daemon *Daemon) sendOne(ctx context.Context) (ok bool) {
	// Record panics and continue on the next frame
	defer func() {
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in sender loop: %v\n%s", fatalError, stack)
			ok = false
		}
	}()

	frame, err := daemon.source.Next(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		daemon.Metrics.SourceErrors.Add(1)
		logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
			"frame source failed: %v\n", err)
		return
	}
	if len(frame) == 0 {
		daemon.Metrics.SourceErrors.Add(1)
		return
	}

	packets, err := protocol.Fragment(frame, daemon.frameID, daemon.settings().MaxPayload, protocol.CodecJPEG, 0, 0)
	if err != nil {
		// Frame is dropped, the id is not consumed
		daemon.Metrics.FramesDropped.Add(1)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"dropped frame of %d bytes: %v\n", len(frame), err)
		ok = true
		return
	}

	daemon.Transmitter.SendFrame(ctx, packets)
	daemon.Metrics.FramesSent.Add(1)
	daemon.frameID++
	ok = true
	return
}

// Sleeps for d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
