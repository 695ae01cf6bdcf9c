// UDP socket setup and path MTU helpers
package network

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// Joins host and port, bracketing IPv6 literals
func JoinHostPort(host string, port int) (address string) {
	address = net.JoinHostPort(host, strconv.Itoa(port))
	return
}

// Binds a UDP socket with address reuse and the requested kernel receive buffer.
// A receiveBuffer of 0 leaves the system default.
func ListenUDP(ctx context.Context, address string, receiveBuffer int) (conn *net.UDPConn, err error) {
	cfg := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			ctrlErr := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if sockErr != nil || receiveBuffer <= 0 {
					return
				}
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, receiveBuffer)
			})
			if ctrlErr != nil {
				return ctrlErr
			}
			return sockErr
		},
	}

	pc, err := cfg.ListenPacket(ctx, "udp", address)
	if err != nil {
		err = fmt.Errorf("failed to listen on %s: %w", address, err)
		return
	}
	conn = pc.(*net.UDPConn)
	return
}

// Kernel-reported receive buffer size (Linux reports double the requested value)
func ReceiveBufferSize(conn *net.UDPConn) (size int, err error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		size, sockErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF)
	})
	if err == nil {
		err = sockErr
	}
	return
}

// Connected UDP socket for sending to a single destination
func DialUDP(ctx context.Context, address string) (conn *net.UDPConn, err error) {
	var dialer net.Dialer
	c, err := dialer.DialContext(ctx, "udp", address)
	if err != nil {
		err = fmt.Errorf("failed to open udp socket to %s: %w", address, err)
		return
	}
	conn = c.(*net.UDPConn)
	return
}
