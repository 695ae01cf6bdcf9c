package ebpf

import (
	"fmt"
	"net"
	"runtime"

	"golang.org/x/sys/unix"
)

// Retrieve unique identifier (cookie) for a socket
func GetSocketCookie(conn *net.UDPConn) (cookie uint64, err error) {
	if runtime.GOOS != "linux" {
		return
	}

	raw, err := conn.SyscallConn()
	if err != nil {
		return
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		cookie, sockErr = unix.GetsockoptUint64(int(fd), unix.SOL_SOCKET, unix.SO_COOKIE)
	})
	if err == nil && sockErr != nil {
		err = fmt.Errorf("getsockopt failed: %w", sockErr)
	}
	return
}
