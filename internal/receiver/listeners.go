package receiver

import (
	"context"
	"errors"
	"fmt"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"framelink/internal/network"
	"framelink/internal/receiver/listener"
	"time"
)

// Binds and starts the video and metrics listeners. A socket that fails to bind
// leaves only its own task stopped. No-op while listeners are running.
func (daemon *Daemon) StartListeners() (err error) {
	daemon.mu.Lock()
	defer daemon.mu.Unlock()

	if daemon.link != nil {
		return
	}
	cfg := daemon.cfg

	linkCtx, cancel := context.WithCancel(daemon.ctx)
	link := &linkSet{cancel: cancel}
	namespace := []string{global.NSRecv}

	var packetCapture listener.PacketCapture
	if daemon.capture != nil {
		packetCapture = daemon.capture
	}

	video, videoErr := listener.NewVideo(linkCtx, namespace, listener.VideoConfig{
		Address:       network.JoinHostPort(cfg.ListenIP, cfg.VideoPort),
		ReceiveBuffer: cfg.ReceiveBuffer,
		KernelFilter:  cfg.KernelFilter,
		Reassembly:    cfg.Reassembly,
	}, daemon.Receiver, daemon.Latest, packetCapture)
	if videoErr != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.ErrorLog,
			"video listener not started: %v\n", videoErr)
	} else {
		link.video = video
		link.videoRunning.Store(true)
		link.wg.Add(1)
		go func() {
			defer link.wg.Done()
			defer link.videoRunning.Store(false)
			video.Run(linkCtx)
		}()
	}

	side, sideErr := listener.NewMetrics(linkCtx, namespace,
		network.JoinHostPort(cfg.ListenIP, cfg.MetricsPort),
		daemon.Server)
	if sideErr != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.ErrorLog,
			"metrics listener not started: %v\n", sideErr)
	} else {
		link.side = side
		link.wg.Add(1)
		go func() {
			defer link.wg.Done()
			side.Run(linkCtx)
		}()
	}

	if videoErr != nil && sideErr != nil {
		cancel()
		err = errors.Join(videoErr, sideErr)
		return
	}

	daemon.link = link
	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Listeners started\n")
	return
}

// Stops both listeners and waits for their sockets to close
func (daemon *Daemon) StopListeners() (err error) {
	daemon.mu.Lock()
	link := daemon.link
	daemon.link = nil
	daemon.mu.Unlock()

	if link == nil {
		return
	}
	link.cancel()

	done := make(chan struct{})
	go func() {
		link.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Listeners stopped\n")
	case <-time.After(global.ReceiveShutdownTimeout):
		err = fmt.Errorf("listeners did not stop within %v", global.ReceiveShutdownTimeout)
	}
	return
}

// Stops the listeners, pauses for the sockets to release, then starts them again
func (daemon *Daemon) RestartListeners() (err error) {
	err = daemon.StopListeners()
	if err != nil {
		return
	}
	time.Sleep(global.ListenerRestartPause)
	err = daemon.StartListeners()
	return
}

// Reports whether the video listener is alive
func (daemon *Daemon) ListenersRunning() (running bool) {
	daemon.mu.Lock()
	link := daemon.link
	daemon.mu.Unlock()

	if link == nil {
		return
	}
	running = link.videoRunning.Load()
	return
}
