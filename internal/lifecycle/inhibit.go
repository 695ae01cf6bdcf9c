package lifecycle

import (
	"context"
	"fmt"
	"framelink/internal/global"
	"os"

	"github.com/godbus/dbus/v5"
)

const (
	logindDest   string = "org.freedesktop.login1"
	logindPath   string = "/org/freedesktop/login1"
	logindMethod string = "org.freedesktop.login1.Manager.Inhibit"
)

// Held logind inhibitor lock. Released when the descriptor is closed.
type Inhibitor struct {
	lock *os.File
}

// Takes a blocking sleep/idle inhibitor lock from logind over the system bus
func InhibitSleep(ctx context.Context, why string) (inhibitor *Inhibitor, err error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		err = fmt.Errorf("failed connecting to system bus: %w", err)
		return
	}

	var fd dbus.UnixFD
	login := conn.Object(logindDest, dbus.ObjectPath(logindPath))
	err = login.CallWithContext(ctx, logindMethod, 0, "sleep:idle", global.ProgBaseName, why, "block").Store(&fd)
	if err != nil {
		err = fmt.Errorf("logind inhibit call failed: %w", err)
		return
	}

	inhibitor = &Inhibitor{lock: os.NewFile(uintptr(fd), "logind-inhibit")}
	return
}

// Releases the lock
func (inhibitor *Inhibitor) Release() (err error) {
	if inhibitor == nil || inhibitor.lock == nil {
		return
	}
	err = inhibitor.lock.Close()
	inhibitor.lock = nil
	return
}
