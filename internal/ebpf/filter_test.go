package ebpf

import (
	"framelink/pkg/protocol"
	"net"
	"testing"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
)

func TestVideoFilterInstructions(t *testing.T) {
	insns := videoFilterInstructions(3)

	symbols := map[string]int{}
	var lookups int
	for i, ins := range insns {
		if symbol := ins.Symbol(); symbol != "" {
			symbols[symbol] = i
		}
		if ins.IsBuiltinCall() && ins.Constant == int64(asm.FnMapLookupElem) {
			lookups++
		}
	}

	for _, symbol := range []string{"drop", "out"} {
		if _, ok := symbols[symbol]; !ok {
			t.Fatalf("missing jump target %q", symbol)
		}
	}
	if lookups != 1 {
		t.Fatalf("expected one map lookup, got %d", lookups)
	}
	if last := insns[len(insns)-1]; last.OpCode.JumpOp() != asm.Exit {
		t.Fatalf("program must end with exit, got %v", last)
	}
	if int(minDatagram) != 8+protocol.HeaderLen {
		t.Fatalf("unexpected minimum datagram length %d", minDatagram)
	}
}

func TestDropsMapSpec(t *testing.T) {
	spec := dropsMapSpec()
	if spec.Type != ebpf.Array || spec.MaxEntries != 1 || spec.ValueSize != 8 {
		t.Fatalf("unexpected map spec %+v", spec)
	}
}

func TestDroppedWithoutAttach(t *testing.T) {
	var filter *Filter
	if _, err := filter.Dropped(); err == nil {
		t.Fatal("expected error for nil filter")
	}
	if err := filter.Close(); err != nil {
		t.Fatalf("closing nil filter should be a no-op, got %v", err)
	}
}

// Needs CAP_BPF or root, skipped otherwise
func TestAttachVideoFilter(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("unexpected listen error: %v", err)
	}
	defer conn.Close()

	filter, err := AttachVideoFilter(conn)
	if err != nil {
		t.Skipf("socket filter unavailable: %v", err)
	}
	defer filter.Close()

	sender, err := net.DialUDP("udp", nil, conn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("unexpected dial error: %v", err)
	}
	defer sender.Close()

	// Too short, must be filtered
	sender.Write([]byte{1, 2, 3})

	packet, err := protocol.Encode(1, 0, 1, []byte("jpeg"), protocol.CodecJPEG, 0, 0)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	sender.Write(packet)

	buffer := make([]byte, 128)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFromUDP(buffer)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if n != len(packet) {
		t.Fatalf("expected valid packet of %d bytes first, got %d", len(packet), n)
	}

	dropped, err := filter.Dropped()
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	if dropped != 1 {
		t.Fatalf("expected 1 kernel drop, got %d", dropped)
	}
}

func TestGetSocketCookie(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("unexpected listen error: %v", err)
	}
	defer conn.Close()

	first, err := GetSocketCookie(conn)
	if err != nil {
		t.Skipf("socket cookies unavailable: %v", err)
	}

	other, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("unexpected listen error: %v", err)
	}
	defer other.Close()

	second, err := GetSocketCookie(other)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct cookies, both %d", first)
	}
}
