// Daemon for continuous reception of video fragments, frame reassembly, and serving of the newest frame
package receiver

import (
	"context"
	"fmt"
	"framelink/internal/config"
	"framelink/internal/externalio/beats"
	"framelink/internal/externalio/capture"
	"framelink/internal/externalio/server"
	"framelink/internal/global"
	"framelink/internal/lifecycle"
	"framelink/internal/logctx"
	"framelink/internal/metrics"
	"framelink/internal/receiver/latest"
	"framelink/internal/receiver/stats"
	"framelink/pkg/protocol"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// Create new receiver daemon instance
func NewDaemon(cfg Config) (new *Daemon) {
	ctx, cancel := context.WithCancel(context.Background())
	new = &Daemon{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
	return
}

// Starts receiver worker threads in background - gracefully shuts down if startup error is encountered
func (daemon *Daemon) Start(globalCtx context.Context) (err error) {
	// New context for the daemon
	daemon.ctx, daemon.cancel = context.WithCancel(context.Background())
	daemon.ctx = context.WithValue(daemon.ctx, global.LoggerKey, logctx.GetLogger(globalCtx))

	// Top level tag for daemon logs
	daemon.ctx = logctx.AppendCtxTag(daemon.ctx, global.NSRecv)

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Starting...\n")

	// Pre-startup
	daemon.cfg.setDefaults()

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
		err = lifecycle.RecordPID(daemon.cfg.PIDFile, "receiver", global.PID)
		if err != nil {
			err = fmt.Errorf("failed recording pid: %w", err)
			return
		}
	}

	namespace := []string{global.NSRecv}

	// Shared state, kept across listener restarts
	daemon.Receiver = stats.NewReceiver(namespace)
	daemon.Server = stats.NewServerView(namespace)
	daemon.Latest = latest.New()

	// Outputs
	daemon.capture, err = capture.NewWriter(namespace, daemon.cfg.CaptureFile)
	if err != nil {
		err = fmt.Errorf("failed opening capture output: %w", err)
		daemon.Shutdown()
		return
	}
	daemon.exporter, err = beats.NewExporter(namespace, daemon.cfg.BeatsEndpoint, global.SessionID)
	if err != nil {
		err = fmt.Errorf("failed creating beats output: %w", err)
		daemon.Shutdown()
		return
	}
	workerCtx := daemon.ctx
	daemon.wg.Add(2)
	go func() {
		defer daemon.wg.Done()
		daemon.capture.Run(workerCtx)
	}()
	go func() {
		defer daemon.wg.Done()
		daemon.exporter.Run(workerCtx)
	}()

	// Metrics Collector
	daemon.metricsCollector = metrics.NewGatherer(daemon.collectors,
		daemon.cfg.MetricCollectionInterval,
		daemon.cfg.MetricMaxAge)
	daemon.metricsCollector.OnInterval(daemon.exporter.SnapshotHook(daemon.snapshotFields))
	daemon.wg.Add(1)
	go func() {
		defer daemon.wg.Done()
		daemon.metricsCollector.Run(workerCtx)
	}()

	// Web Server (copy so later tags don't leak in)
	serverCtx := logctx.AppendCtxTag(daemon.ctx, global.NSMetricSrv)
	registry := daemon.metricsCollector.Registry
	daemon.HTTPServer, err = server.SetupReceiverListener(serverCtx,
		daemon.cfg.WebIP,
		daemon.cfg.WebPort,
		daemon.Latest,
		daemon,
		server.Queries{
			Search:    registry.Search,
			Discover:  registry.Discover,
			Aggregate: registry.Aggregate,
		})
	if err != nil {
		err = fmt.Errorf("failed setting up web server: %w", err)
		daemon.Shutdown()
		return
	}
	daemon.wg.Add(1)
	go func() {
		defer daemon.wg.Done()
		server.Start(serverCtx, daemon.HTTPServer)
	}()

	// Listeners
	if daemon.cfg.AutoStartListeners {
		lerr := daemon.StartListeners()
		if lerr != nil {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.ErrorLog,
				"failed starting listeners: %v\n", lerr)
		}
	}

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Startup complete.\n")
	return
}

// Components currently able to report metrics
func (daemon *Daemon) collectors() (collection []metrics.Collector) {
	collection = []metrics.Collector{daemon.Receiver, daemon.Server}

	daemon.mu.Lock()
	link := daemon.link
	daemon.mu.Unlock()
	if link != nil {
		if link.video != nil {
			collection = append(collection, link.video)
		}
		if link.side != nil {
			collection = append(collection, link.side)
		}
	}
	if daemon.capture != nil {
		collection = append(collection, daemon.capture)
	}
	if daemon.exporter != nil {
		collection = append(collection, daemon.exporter)
	}
	return
}

// Beats event body, same keys as the /metrics reply
func (daemon *Daemon) snapshotFields() (fields map[string]interface{}) {
	server, client := daemon.Metrics()
	fields = map[string]interface{}{
		"client": client,
		"server": server,
	}
	return
}

// Current sender-reported and receiver-observed statistics
func (daemon *Daemon) Metrics() (sender protocol.SenderSnapshot, client stats.ReceiverSnapshot) {
	sender = daemon.Server.Snapshot()
	client = daemon.Receiver.Snapshot()
	return
}

// Active configuration file content
func (daemon *Daemon) Config() (file config.File) {
	daemon.mu.Lock()
	defer daemon.mu.Unlock()
	file = daemon.cfg.File
	return
}

// Persists a new configuration and applies it
func (daemon *Daemon) ApplyConfig(file config.File) (err error) {
	daemon.mu.Lock()
	path := daemon.cfg.ConfigPath
	daemon.mu.Unlock()

	if path != "" {
		err = config.Save(path, file)
		if err != nil {
			err = fmt.Errorf("failed saving configuration: %w", err)
			return
		}
	}
	err = daemon.Reconfigure(file)
	return
}

// Swaps in new configuration. Listener settings restart the listeners, the rest waits for a daemon restart.
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
	next.Override = current.Override

	if next.restartSettings() != current.restartSettings() {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
			"web, output and metric settings take effect after restart\n")
	}
	next.keepRestartSettings(current)

	daemon.mu.Lock()
	daemon.cfg = next
	daemon.mu.Unlock()

	if next.linkSettings() == current.linkSettings() {
		return
	}
	if !daemon.ListenersRunning() {
		return
	}
	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
		"Listener settings changed, restarting listeners\n")
	err = daemon.RestartListeners()
	return
}

// Re-reads the configuration file
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

// Applies configuration file edits as they are written
func (daemon *Daemon) WatchConfig() (err error) {
	daemon.mu.Lock()
	path := daemon.cfg.ConfigPath
	daemon.mu.Unlock()

	watchCtx := logctx.AppendCtxTag(daemon.ctx, global.NSWatcher)
	err = config.Watch(path,
		func(file config.File) {
			lerr := daemon.Reconfigure(file)
			if lerr != nil {
				logctx.LogEvent(watchCtx, global.VerbosityStandard, global.ErrorLog,
					"failed applying changed configuration: %v\n", lerr)
			}
		},
		func(lerr error) {
			logctx.LogEvent(watchCtx, global.VerbosityStandard, global.WarnLog,
				"ignoring invalid configuration change: %v\n", lerr)
		})
	return
}

// Stops sibling processes recorded in the pid file, then this daemon
func (daemon *Daemon) RequestShutdown() (terminated map[string]int) {
	daemon.mu.Lock()
	pidFile := daemon.cfg.PIDFile
	daemon.mu.Unlock()

	terminated = make(map[string]int)
	if pidFile != "" {
		var failed map[string]int
		var err error
		terminated, failed, err = lifecycle.TerminateOthers(pidFile, "receiver")
		if err != nil {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"failed reading pid file: %v\n", err)
		}
		for role, pid := range failed {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"failed terminating %s (pid %d)\n", role, pid)
		}
	}

	// Request handler must return before the web server can stop
	go daemon.Shutdown()
	return
}

// Blocking daemon waiter
func (daemon *Daemon) Run() {
	<-daemon.ctx.Done()
}

// Gracefully shutdown worker threads (errors are printed to program log buffer). Safe to call more than once.
func (daemon *Daemon) Shutdown() {
	daemon.shutdownOnce.Do(daemon.shutdown)
}

func (daemon *Daemon) shutdown() {
	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
		"Daemon shutdown started...\n")

	// Stop web server
	if daemon.HTTPServer != nil {
		stopCtx, cancel := context.WithTimeout(daemon.ctx, global.HTTPWriteTimeout)
		err := daemon.HTTPServer.Shutdown(stopCtx)
		cancel()
		if err != nil && err != http.ErrServerClosed {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"HTTP server did not shutdown gracefully: %v\n", err)
		}
	}

	// Stop listener instances
	err := daemon.StopListeners()
	if err != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog, "%v\n", err)
	}

	// Flush outputs
	err = daemon.exporter.Shutdown(daemon.ctx, global.SendShutdownTimeout)
	if err != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
			"beats output did not shutdown gracefully: %v\n", err)
	}
	err = daemon.capture.Close(daemon.ctx)
	if err != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
			"capture output did not close cleanly: %v\n", err)
	}

	// Stop the run loop after outputs are drained
	daemon.cancel()

	// Wait for all workers to finish (with timeout)
	done := make(chan struct{})
	go func() {
		daemon.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
			"Daemon shutdown completed successfully\n")
	case <-time.After(global.ReceiveShutdownTimeout):
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
			"Timeout: receive daemon did not shutdown within %v seconds\n",
			global.ReceiveShutdownTimeout.Seconds())
	}
}
