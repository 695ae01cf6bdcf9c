package lifecycle

import (
	"context"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"os"
	"os/signal"
	"syscall"
)

type DaemonLike interface {
	Reload(ctx context.Context) (err error)
	Shutdown()
}

// Handles all incoming signals from external sources.
// SIGHUP reloads the daemon configuration, anything else shuts the daemon down and returns.
// Also returns (without shutdown) when ctx is done.
func SignalHandler(ctx context.Context, daemon DaemonLike) {
	// Channel for handling interrupt signals
	sigChan := make(chan os.Signal, 10)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	handleSignals(ctx, daemon, sigChan)
}

func handleSignals(ctx context.Context, daemon DaemonLike, sigChan <-chan os.Signal) {
	for {
		var sig os.Signal
		select {
		case <-ctx.Done():
			return
		case sig = <-sigChan:
		}
		logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Received signal: %v\n", sig)

		if sig == syscall.SIGHUP {
			reload(ctx, daemon)
			continue
		}

		err := NotifyStopping(ctx)
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify stopping failed: %v\n", err)
		}
		daemon.Shutdown()
		return
	}
}

func reload(ctx context.Context, daemon DaemonLike) {
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Beginning reload...\n")
	err := NotifyReload(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify reload failed: %v\n", err)
	}

	err = daemon.Reload(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Reload failed, keeping running configuration: %v\n", err)
		err = NotifyStatus(ctx, "Reload failed due to invalid configuration. Check daemon logs.")
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify status failed: %v\n", err)
		}
	} else {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Reload complete.\n")
	}

	err = NotifyReady(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify ready failed: %v\n", err)
	}
}
