// Operations shared by the sender and receiver daemons: signals, service manager notification, pid file, sleep inhibition
package lifecycle

import (
	"context"
	"fmt"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"net"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

const notifySocketEnv string = "NOTIFY_SOCKET"

// Startup or reload finished
func NotifyReady(ctx context.Context) (err error) {
	err = notify(ctx, "READY=1")
	return
}

// Reload started. The service manager requires the monotonic timestamp alongside.
func NotifyReload(ctx context.Context) (err error) {
	var now unix.Timespec
	err = unix.ClockGettime(unix.CLOCK_MONOTONIC, &now)
	if err != nil {
		err = fmt.Errorf("failed reading monotonic clock: %w", err)
		return
	}
	err = notify(ctx, "RELOADING=1", fmt.Sprintf("MONOTONIC_USEC=%d", now.Nano()/1000))
	return
}

// Shutdown started
func NotifyStopping(ctx context.Context) (err error) {
	err = notify(ctx, "STOPPING=1")
	return
}

// Free form status line shown by the service manager
func NotifyStatus(ctx context.Context, status string) (err error) {
	err = notify(ctx, "STATUS="+status)
	return
}

// Writes one datagram of newline separated assignments. No-op outside a service manager.
func notify(ctx context.Context, assignments ...string) (err error) {
	socketPath := os.Getenv(notifySocketEnv)
	if socketPath == "" {
		return
	}
	// Abstract namespace sockets are announced with a leading '@'
	if strings.HasPrefix(socketPath, "@") {
		socketPath = "\x00" + socketPath[1:]
	}

	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: socketPath, Net: "unixgram"})
	if err != nil {
		err = fmt.Errorf("failed connecting to notify socket: %w", err)
		return
	}
	defer conn.Close()

	message := strings.Join(assignments, "\n")
	_, err = conn.Write([]byte(message))
	if err != nil {
		err = fmt.Errorf("failed writing notify message: %w", err)
		return
	}

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
		"Notified service manager: %s\n", strings.ReplaceAll(message, "\n", " "))
	return
}
