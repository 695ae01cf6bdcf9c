package integration

import (
	"context"
	"fmt"
	"framelink/internal/config"
	"framelink/internal/logctx"
	"framelink/internal/receiver"
	"framelink/internal/receiver/stats"
	"net"
	"regexp"
	"strings"
	"testing"
	"time"
)

func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to reserve udp port: %v", err)
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func freeTCPPort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve tcp port: %v", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

// Loopback config shared by both daemons
func loopbackFile(t *testing.T) (file config.File) {
	file = config.Defaults()
	file.Receiver.Network.ListenAddress = "127.0.0.1"
	file.Receiver.Network.VideoPort = freeUDPPort(t)
	file.Receiver.Network.MetricsPort = freeUDPPort(t)
	file.Receiver.Network.KernelFilter = false
	file.Receiver.HTTP.Address = "127.0.0.1"
	file.Receiver.HTTP.Port = freeTCPPort(t)

	file.Sender.Network.ClientAddress = "127.0.0.1"
	file.Sender.Network.VideoPort = file.Receiver.Network.VideoPort
	file.Sender.Network.MetricsPort = file.Receiver.Network.MetricsPort
	file.Sender.Source.Width = 64
	file.Sender.Source.Height = 48
	return
}

func startReceiver(t *testing.T, ctx context.Context, file config.File) (recvDaemon *receiver.Daemon) {
	t.Helper()
	cfg, err := receiver.NewDaemonConf(file, "")
	if err != nil {
		t.Fatalf("unexpected receiver config error: %v", err)
	}
	recvDaemon = receiver.NewDaemon(cfg)
	err = recvDaemon.Start(ctx)
	if err != nil {
		t.Fatalf("unexpected receiver start error: %v", err)
	}
	t.Cleanup(recvDaemon.Shutdown)

	waitFor(t, "receiver listeners", 5*time.Second, func() bool { return recvDaemon.ListenersRunning() })
	return
}

func waitFor(t *testing.T, what string, timeout time.Duration, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !check() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// Compares receiver counters against what the test sent
func checkLinkCounts(snapshot stats.ReceiverSnapshot, packets, frames uint64) (err error) {
	if snapshot.PacketsReceived != packets {
		err = fmt.Errorf("expected %d packets received, got %d", packets, snapshot.PacketsReceived)
		return
	}
	if snapshot.FramesDecoded != frames {
		err = fmt.Errorf("expected %d frames decoded, got %d", frames, snapshot.FramesDecoded)
		return
	}
	if snapshot.FramesLost != 0 {
		err = fmt.Errorf("expected no estimated loss, got %d", snapshot.FramesLost)
		return
	}
	return
}

// Uses logger in context to search logger buffer for events matching filter (must match all 3 filters if filters are not empty)
func filterLogBuffer(ctx context.Context, searchText, searchTag, searchSeverity string) (matches string, found bool) {
	logger := logctx.GetLogger(ctx)
	if logger == nil {
		return
	}

	bracketRe := regexp.MustCompile(`\[[^\]]*\]`)

	var foundLines []string
	for _, line := range logger.GetFormattedLogLines() {
		if searchTag != "" {
			var tagged bool
			for _, bracket := range bracketRe.FindAllString(line, -1) {
				if strings.Contains(bracket, searchTag) {
					tagged = true
					break
				}
			}
			if !tagged {
				continue
			}
		}
		if searchSeverity != "" && !strings.Contains(line, "["+searchSeverity+"]") {
			continue
		}
		if searchText != "" && !strings.Contains(line, searchText) {
			continue
		}
		foundLines = append(foundLines, line)
	}

	found = len(foundLines) > 0
	matches = strings.Join(foundLines, "")
	return
}
