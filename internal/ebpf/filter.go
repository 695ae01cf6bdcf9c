// Kernel-side datagram filtering for the video socket
package ebpf

import (
	"errors"
	"fmt"
	"framelink/pkg/protocol"
	"net"
	"runtime"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
	"github.com/cilium/ebpf/rlimit"
	"golang.org/x/sys/unix"
)

const (
	programName  string = "vid_hdr_filter"
	dropsMapName string = "vid_hdr_drops"

	// Socket filters on UDP sockets see the UDP header first
	udpHeaderLen  int32 = 8
	minDatagram   int32 = udpHeaderLen + int32(protocol.HeaderLen)
	versionOffset int32 = udpHeaderLen
)

var ErrUnsupported = errors.New("socket filters are only supported on linux")

// Attached socket filter dropping datagrams without a valid header prefix
type Filter struct {
	program *ebpf.Program
	drops   *ebpf.Map
}

// Filter program: keep datagrams of at least minDatagram bytes whose version byte matches,
// count everything else in slot 0 of the drops map.
func videoFilterInstructions(dropsFD int) (insns asm.Instructions) {
	insns = asm.Instructions{
		asm.Mov.Reg(asm.R6, asm.R1),              // ctx for LoadAbs
		asm.LoadMem(asm.R7, asm.R6, 0, asm.Word), // skb->len
		asm.JLT.Imm(asm.R7, minDatagram, "drop"),
		asm.LoadAbs(versionOffset, asm.Byte),
		asm.JNE.Imm(asm.R0, int32(protocol.Version), "drop"),
		asm.Mov.Reg(asm.R0, asm.R7), // keep whole datagram
		asm.Return(),

		asm.StoreImm(asm.RFP, -4, 0, asm.Word).WithSymbol("drop"),
		asm.Mov.Reg(asm.R2, asm.RFP),
		asm.Add.Imm(asm.R2, -4),
		asm.LoadMapPtr(asm.R1, dropsFD),
		asm.FnMapLookupElem.Call(),
		asm.JEq.Imm(asm.R0, 0, "out"),
		asm.Mov.Imm(asm.R1, 1),
		asm.StoreXAdd(asm.R0, asm.R1, asm.DWord),
		asm.Mov.Imm(asm.R0, 0).WithSymbol("out"),
		asm.Return(),
	}
	return
}

func dropsMapSpec() (spec *ebpf.MapSpec) {
	spec = &ebpf.MapSpec{
		Name:       dropsMapName,
		Type:       ebpf.Array,
		KeySize:    4,
		ValueSize:  8,
		MaxEntries: 1,
	}
	return
}

// Loads the filter and attaches it to the socket
func AttachVideoFilter(conn *net.UDPConn) (filter *Filter, err error) {
	if runtime.GOOS != "linux" {
		err = ErrUnsupported
		return
	}

	err = rlimit.RemoveMemlock()
	if err != nil {
		err = fmt.Errorf("remove memlock limit: %w", err)
		return
	}

	drops, err := ebpf.NewMap(dropsMapSpec())
	if err != nil {
		err = fmt.Errorf("create drop counter map: %w", err)
		return
	}

	program, err := ebpf.NewProgram(&ebpf.ProgramSpec{
		Name:         programName,
		Type:         ebpf.SocketFilter,
		License:      "GPL",
		Instructions: videoFilterInstructions(drops.FD()),
	})
	if err != nil {
		drops.Close()
		err = fmt.Errorf("load socket filter: %w", err)
		return
	}

	raw, err := conn.SyscallConn()
	if err != nil {
		program.Close()
		drops.Close()
		return
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ATTACH_BPF, program.FD())
	})
	if err == nil {
		err = sockErr
	}
	if err != nil {
		program.Close()
		drops.Close()
		err = fmt.Errorf("attach socket filter: %w", err)
		return
	}

	filter = &Filter{program: program, drops: drops}
	return
}

// Datagrams dropped in the kernel since attach
func (filter *Filter) Dropped() (count uint64, err error) {
	if filter == nil || filter.drops == nil {
		err = fmt.Errorf("filter not attached")
		return
	}
	err = filter.drops.Lookup(uint32(0), &count)
	return
}

// Releases program and map. The kernel keeps the filter until the socket closes.
func (filter *Filter) Close() (err error) {
	if filter == nil {
		return
	}
	err = errors.Join(filter.program.Close(), filter.drops.Close())
	return
}
