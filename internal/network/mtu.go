package network

import (
	"fmt"
	"net"
	"strings"
)

// Default to ethernet standard MTU if no other MTU is found
const defaultMTU int = 1500

// Worst case header overhead for UDP over the destination address family
func getTransportOverhead(destination string) (overhead int, err error) {
	const ip4Overhead int = 60 // maximum IPv4 header with options
	const ip6Overhead int = 80 // IPv6 header plus room for extension headers
	const udpOverhead int = 8

	ip := net.ParseIP(strings.Trim(destination, "[]"))
	switch {
	case ip == nil:
		err = fmt.Errorf("unsupported destination address '%v'", destination)
	case ip.To4() != nil:
		overhead = ip4Overhead + udpOverhead
	default:
		overhead = ip6Overhead + udpOverhead
	}
	return
}

// Determines the maximum UDP payload size toward the destination (host or host:port)
func FindSendingMaxUDPPayload(destination string) (maxPayloadSize int, err error) {
	destinationIP := destination
	host, _, splitErr := net.SplitHostPort(destination)
	if splitErr == nil {
		destinationIP = host
	}

	overhead, err := getTransportOverhead(destinationIP)
	if err != nil {
		err = fmt.Errorf("failed to retrieve transport layer overhead: %w", err)
		return
	}

	mtu, err := interfaceMTU(destinationIP)
	if err != nil {
		return
	}
	if mtu <= 0 {
		mtu = defaultMTU
	}

	maxPayloadSize = mtu - overhead
	return
}

// MTU of the interface traffic to the destination would leave from
func interfaceMTU(destinationIP string) (mtu int, err error) {
	ip := net.ParseIP(strings.Trim(destinationIP, "[]"))
	if ip == nil {
		err = fmt.Errorf("invalid destination address: %s", destinationIP)
		return
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return
	}

	var commonMTU int
	for _, iface := range ifaces {
		isLoopback := iface.Flags&net.FlagLoopback != 0
		if ip.IsLoopback() {
			if isLoopback {
				mtu = iface.MTU
				return
			}
			continue
		}
		if isLoopback || iface.Flags&net.FlagUp == 0 {
			continue
		}

		if commonMTU == 0 {
			commonMTU = iface.MTU
		} else if commonMTU != iface.MTU {
			// MTUs differ across interfaces, ask the routing table
			commonMTU = 0
			break
		}
	}
	if commonMTU != 0 {
		mtu = commonMTU
		return
	}

	iface, err := interfaceForDestination(ip)
	if err != nil {
		return
	}
	mtu = iface.MTU
	return
}

// Determines the interface used to reach a given destination address
func interfaceForDestination(destination net.IP) (iface *net.Interface, err error) {
	// Quick dial to see what source address the system would use
	conn, err := net.Dial("udp", JoinHostPort(destination.String(), 9))
	if err != nil {
		err = fmt.Errorf("failed to find interface for destination %s: %w", destination, err)
		return
	}
	defer conn.Close()

	localIP := conn.LocalAddr().(*net.UDPAddr).IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return
	}
	for i := range ifaces {
		addrs, addrErr := ifaces[i].Addrs()
		if addrErr != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if ok && ipNet.IP.Equal(localIP) {
				iface = &ifaces[i]
				return
			}
		}
	}

	err = fmt.Errorf("no matching interface found for address %v", localIP)
	return
}
