// Daemon for continuous capture of frames from the configured source, fragmentation, and delivery to the receiver
package sender

import (
	"context"
	"fmt"
	"framelink/internal/config"
	"framelink/internal/externalio/server"
	"framelink/internal/global"
	"framelink/internal/lifecycle"
	"framelink/internal/logctx"
	"framelink/internal/metrics"
	"framelink/internal/network"
	"framelink/internal/sender/output"
	"framelink/internal/sender/source"
	"framelink/pkg/protocol"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// Create new sender daemon instance
func NewDaemon(cfg Config) (new *Daemon) {
	ctx, cancel := context.WithCancel(context.Background())
	new = &Daemon{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
	return
}

// Opens the source and sockets and starts the send loop in background
func (daemon *Daemon) Start(globalCtx context.Context) (err error) {
	// New context for the daemon
	daemon.ctx, daemon.cancel = context.WithCancel(context.Background())
	daemon.ctx = context.WithValue(daemon.ctx, global.LoggerKey, logctx.GetLogger(globalCtx))

	// Top level tag for daemon logs
	daemon.ctx = logctx.AppendCtxTag(daemon.ctx, global.NSSend)

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Starting...\n")

	// Pre-startup
	daemon.cfg.setDefaults()
	daemon.live = liveSettings{
		FPSLimit:   daemon.cfg.FPSLimit,
		MaxPayload: daemon.cfg.MaxPayload,
	}

	global.Hostname, err = os.Hostname()
	if err != nil {
		err = fmt.Errorf("failed to determine local hostname: %w", err)
		return
	}
	global.PID = os.Getpid()
	if global.SessionID == "" {
		global.SessionID = uuid.NewString()
	}

	if daemon.cfg.PIDFile != "" {
		err = lifecycle.RecordPID(daemon.cfg.PIDFile, "sender", global.PID)
		if err != nil {
			err = fmt.Errorf("failed recording pid: %w", err)
			return
		}
	}

	videoAddress := network.JoinHostPort(daemon.cfg.ClientIP, daemon.cfg.VideoPort)
	daemon.checkMTU(videoAddress)

	namespace := []string{global.NSSend}

	daemon.source, err = source.New(namespace, daemon.cfg.Source)
	if err != nil {
		err = fmt.Errorf("failed opening frame source: %w", err)
		return
	}

	daemon.Transmitter, err = output.NewTransmitter(daemon.ctx, namespace, output.TransmitConfig{
		VideoAddress:   videoAddress,
		MetricsAddress: network.JoinHostPort(daemon.cfg.ClientIP, daemon.cfg.MetricsPort),
		Encoding:       daemon.cfg.MetricsEncoding,
		SendTimeout:    global.DefaultSendTimeout,
	})
	if err != nil {
		err = fmt.Errorf("failed opening transmit sockets: %w", err)
		daemon.Shutdown()
		return
	}

	if daemon.cfg.InhibitSleep {
		var ierr error
		daemon.inhibitor, ierr = lifecycle.InhibitSleep(daemon.ctx, "streaming video")
		if ierr != nil {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"sleep inhibitor unavailable: %v\n", ierr)
		}
	}

	// Metrics Collector
	daemon.metricsCollector = metrics.NewGatherer(daemon.collectors,
		daemon.cfg.MetricCollectionInterval,
		daemon.cfg.MetricMaxAge)
	workerCtx := daemon.ctx
	daemon.wg.Add(1)
	go func() {
		defer daemon.wg.Done()
		daemon.metricsCollector.Run(workerCtx)
	}()

	// Metric Server
	if daemon.cfg.MetricQueryServerPort > 0 {
		// Top level tag for metric server logs (copy so return doesn't strip ns tags)
		serverCtx := logctx.AppendCtxTag(daemon.ctx, global.NSMetric)
		serverCtx = logctx.AppendCtxTag(serverCtx, global.NSMetricSrv)

		registry := daemon.metricsCollector.Registry
		daemon.MetricServer, err = server.SetupQueryListener(serverCtx,
			daemon.cfg.MetricQueryServerPort,
			server.Queries{
				Search:    registry.Search,
				Discover:  registry.Discover,
				Aggregate: registry.Aggregate,
			})
		if err != nil {
			err = fmt.Errorf("failed setting up metric server: %w", err)
			daemon.Shutdown()
			return
		}
		daemon.wg.Add(1)
		go func() {
			defer daemon.wg.Done()
			server.Start(serverCtx, daemon.MetricServer)
		}()
	}

	// Send loop
	daemon.wg.Add(1)
	go func() {
		defer daemon.wg.Done()
		daemon.loop(workerCtx)
	}()

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Startup complete.\n")
	return
}

// Warns when the configured cap would not fit the path MTU
func (daemon *Daemon) checkMTU(destination string) {
	maxUDP, err := network.FindSendingMaxUDPPayload(destination)
	if err != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityProgress, global.WarnLog,
			"could not determine path MTU to %s: %v\n", destination, err)
		return
	}
	needed := daemon.cfg.MaxPayload + protocol.HeaderLen
	if needed > maxUDP {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
			"max payload %d plus %d byte header exceeds path maximum UDP payload %d to %s, expect IP fragmentation\n",
			daemon.cfg.MaxPayload, protocol.HeaderLen, maxUDP, destination)
	}
}

// Components able to report metrics
func (daemon *Daemon) collectors() (collection []metrics.Collector) {
	collection = []metrics.Collector{daemon, daemon.Transmitter}
	if collector, ok := daemon.source.(metrics.Collector); ok {
		collection = append(collection, collector)
	}
	return
}

// Current settings the loop runs with
func (daemon *Daemon) settings() (live liveSettings) {
	daemon.mu.Lock()
	defer daemon.mu.Unlock()
	live = daemon.live
	return
}

// Re-reads the configuration file and applies the settings that can change while running
func (daemon *Daemon) Reload(ctx context.Context) (err error) {
	daemon.mu.Lock()
	path := daemon.cfg.ConfigPath
	daemon.mu.Unlock()

	if path == "" {
		err = fmt.Errorf("no configuration file to reload")
		return
	}
	file, _, err := config.Load(path)
	if err != nil {
		return
	}
	err = daemon.Reconfigure(file)
	return
}

// Swaps in fps limit and max payload, the rest waits for a daemon restart
func (daemon *Daemon) Reconfigure(file config.File) (err error) {
	daemon.mu.Lock()
	current := daemon.cfg
	daemon.mu.Unlock()

	if current.Override != nil {
		err = current.Override(&file)
		if err != nil {
			err = fmt.Errorf("failed reapplying command line overrides: %w", err)
			return
		}
	}

	next, err := NewDaemonConf(file, current.ConfigPath)
	if err != nil {
		return
	}
	next.setDefaults()

	if next.restartSettings() != current.restartSettings() {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
			"destination, source, encoding and metric settings take effect after restart\n")
	}

	// Only the live settings move, everything else keeps describing what is running
	running := current
	running.File = next.File
	running.FPSLimit = next.FPSLimit
	running.MaxPayload = next.MaxPayload

	daemon.mu.Lock()
	daemon.cfg = running
	daemon.live = liveSettings{
		FPSLimit:   running.FPSLimit,
		MaxPayload: running.MaxPayload,
	}
	daemon.mu.Unlock()

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
		"Applied fps limit %g and max payload %d\n", running.FPSLimit, running.MaxPayload)
	return
}

// Blocking daemon waiter
func (daemon *Daemon) Run() {
	<-daemon.ctx.Done()
}

// Gracefully stop the send loop and close resources. Safe to call more than once.
func (daemon *Daemon) Shutdown() {
	daemon.shutdownOnce.Do(daemon.shutdown)
}

func (daemon *Daemon) shutdown() {
	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
		"Daemon shutdown started...\n")

	// Stop metric server
	if daemon.MetricServer != nil {
		stopCtx, cancel := context.WithTimeout(daemon.ctx, global.HTTPWriteTimeout)
		err := daemon.MetricServer.Shutdown(stopCtx)
		cancel()
		if err != nil && err != http.ErrServerClosed {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"metric HTTP server did not shutdown gracefully: %v\n", err)
		}
	}

	// Stop the send loop and collector
	daemon.cancel()

	// Wait for all workers to finish (with timeout)
	done := make(chan struct{})
	go func() {
		daemon.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(global.SendShutdownTimeout):
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
			"Timeout: send daemon did not shutdown within %v seconds\n",
			global.SendShutdownTimeout.Seconds())
	}

	if daemon.source != nil {
		err := daemon.source.Close()
		if err != nil {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"failed closing frame source: %v\n", err)
		}
	}
	err := daemon.Transmitter.Close()
	if err != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
			"failed closing transmit sockets: %v\n", err)
	}
	err = daemon.inhibitor.Release()
	if err != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
			"failed releasing sleep inhibitor: %v\n", err)
	}

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
		"Daemon shutdown completed successfully\n")
}
