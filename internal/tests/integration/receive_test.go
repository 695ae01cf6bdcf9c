package integration

import (
	"bytes"
	"context"
	"fmt"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"framelink/pkg/protocol"
	"math/rand"
	"net"
	"testing"
	"time"
)

func sendPackets(t *testing.T, port int, packets [][]byte) {
	t.Helper()
	conn, err := net.Dial("udp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("failed to dial receiver: %v", err)
	}
	defer conn.Close()
	for _, packet := range packets {
		_, err = conn.Write(packet)
		if err != nil {
			t.Fatalf("failed to send packet: %v", err)
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// Steady flow of shuffled and duplicated fragments reassembles every frame with no loss
func TestRecvConstantFlow(t *testing.T) {
	globalCtx, globalCancel := context.WithCancel(context.Background())
	defer globalCancel()
	globalCtx = logctx.New(globalCtx, "global", global.VerbosityStandard, globalCtx.Done())

	file := loopbackFile(t)
	recvDaemon := startReceiver(t, globalCtx, file)

	tests := []struct {
		name       string
		frameSize  int
		maxPayload int
		expectFrag int
		duplicate  bool
	}{
		{name: "ten kilobytes", frameSize: 10000, maxPayload: 1300, expectFrag: 8},
		{name: "single fragment", frameSize: 900, maxPayload: 1300, expectFrag: 1},
		{name: "small cap with duplicates", frameSize: 4096, maxPayload: 512, expectFrag: 8, duplicate: true},
	}

	var frameID uint32
	var packetTotal, frameTotal uint64
	rng := rand.New(rand.NewSource(7))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				frame := make([]byte, tt.frameSize)
				rng.Read(frame)

				packets, err := protocol.Fragment(frame, frameID, tt.maxPayload, protocol.CodecJPEG, 0, 0)
				if err != nil {
					t.Fatalf("unexpected fragment error: %v", err)
				}
				if len(packets) != tt.expectFrag {
					t.Fatalf("expected %d fragments, got %d", tt.expectFrag, len(packets))
				}
				rng.Shuffle(len(packets), func(a, b int) { packets[a], packets[b] = packets[b], packets[a] })
				if tt.duplicate {
					packets = append(packets, packets[0])
				}

				sendPackets(t, file.Receiver.Network.VideoPort, packets)
				packetTotal += uint64(len(packets))
				frameTotal++
				frameID++

				waitFor(t, "frame published", 5*time.Second, func() bool {
					got, _, ok := recvDaemon.Latest.Load()
					return ok && bytes.Equal(got, frame)
				})
			}

			waitFor(t, "packet counters", 5*time.Second, func() bool {
				_, client := recvDaemon.Metrics()
				return client.PacketsReceived == packetTotal
			})
			_, client := recvDaemon.Metrics()
			err := checkLinkCounts(client, packetTotal, frameTotal)
			if err != nil {
				t.Fatalf("%v", err)
			}
			if client.LastFrameID != int64(frameID-1) {
				t.Fatalf("expected last frame id %d, got %d", frameID-1, client.LastFrameID)
			}
		})
	}
}

// Malformed datagrams are counted and never block valid frames
func TestRecvMalformedTraffic(t *testing.T) {
	file := loopbackFile(t)
	recvDaemon := startReceiver(t, context.Background(), file)

	valid, err := protocol.Fragment([]byte("good frame"), 0, 1300, protocol.CodecJPEG, 0, 0)
	if err != nil {
		t.Fatalf("unexpected fragment error: %v", err)
	}
	corrupted := append([]byte(nil), valid[0]...)
	corrupted[len(corrupted)-1] ^= 0xFF

	packets := [][]byte{
		[]byte("short"),
		corrupted,
		append([]byte{0x09}, valid[0][1:]...), // unsupported version
		valid[0],
	}
	sendPackets(t, file.Receiver.Network.VideoPort, packets)

	waitFor(t, "frame published", 5*time.Second, func() bool {
		got, _, ok := recvDaemon.Latest.Load()
		return ok && string(got) == "good frame"
	})
	waitFor(t, "malformed counted", 5*time.Second, func() bool {
		_, client := recvDaemon.Metrics()
		return client.MalformedPackets == 3
	})
	_, client := recvDaemon.Metrics()
	if client.PacketsReceived != 4 {
		t.Fatalf("expected 4 packets counted, got %d", client.PacketsReceived)
	}
}
