package lifecycle

import (
	"context"
	"errors"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

func listenNotify(t *testing.T) *net.UnixConn {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Fatalf("failed creating notify socket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	t.Setenv("NOTIFY_SOCKET", path)
	return conn
}

func readNotify(t *testing.T, conn *net.UnixConn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("failed reading notify message: %v", err)
	}
	return string(buf[:n])
}

func TestNotifyMessages(t *testing.T) {
	conn := listenNotify(t)
	ctx := context.Background()

	if err := NotifyReady(ctx); err != nil {
		t.Fatalf("unexpected ready error: %v", err)
	}
	if msg := readNotify(t, conn); msg != "READY=1" {
		t.Fatalf("unexpected ready message %q", msg)
	}

	if err := NotifyReload(ctx); err != nil {
		t.Fatalf("unexpected reload error: %v", err)
	}
	if msg := readNotify(t, conn); !strings.HasPrefix(msg, "RELOADING=1\nMONOTONIC_USEC=") {
		t.Fatalf("unexpected reload message %q", msg)
	}

	if err := NotifyStatus(ctx, "testing"); err != nil {
		t.Fatalf("unexpected status error: %v", err)
	}
	if msg := readNotify(t, conn); msg != "STATUS=testing" {
		t.Fatalf("unexpected status message %q", msg)
	}

	if err := NotifyStopping(ctx); err != nil {
		t.Fatalf("unexpected stopping error: %v", err)
	}
	if msg := readNotify(t, conn); msg != "STOPPING=1" {
		t.Fatalf("unexpected stopping message %q", msg)
	}
}

func TestNotifyWithoutSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	if err := NotifyReady(context.Background()); err != nil {
		t.Fatalf("expected no-op without NOTIFY_SOCKET, got %v", err)
	}
}

type fakeDaemon struct {
	mu        sync.Mutex
	reloads   int
	shutdowns int
	reloadErr error
}

func (f *fakeDaemon) Reload(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return f.reloadErr
}

func (f *fakeDaemon) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
}

func TestHandleSignals(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	tests := []struct {
		name            string
		signals         []os.Signal
		reloadErr       error
		expectReloads   int
		expectShutdowns int
	}{
		{name: "terminate", signals: []os.Signal{syscall.SIGTERM}, expectShutdowns: 1},
		{name: "interrupt", signals: []os.Signal{syscall.SIGINT}, expectShutdowns: 1},
		{name: "reload then terminate", signals: []os.Signal{syscall.SIGHUP, syscall.SIGHUP, syscall.SIGTERM}, expectReloads: 2, expectShutdowns: 1},
		{name: "failed reload keeps running", signals: []os.Signal{syscall.SIGHUP, syscall.SIGQUIT}, reloadErr: errors.New("bad config"), expectReloads: 1, expectShutdowns: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			daemon := &fakeDaemon{reloadErr: tt.reloadErr}
			sigChan := make(chan os.Signal, len(tt.signals))
			for _, sig := range tt.signals {
				sigChan <- sig
			}

			done := make(chan struct{})
			go func() {
				handleSignals(context.Background(), daemon, sigChan)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatalf("signal handler did not return")
			}
			if daemon.reloads != tt.expectReloads {
				t.Fatalf("reloads=%d want=%d", daemon.reloads, tt.expectReloads)
			}
			if daemon.shutdowns != tt.expectShutdowns {
				t.Fatalf("shutdowns=%d want=%d", daemon.shutdowns, tt.expectShutdowns)
			}
		})
	}
}

func TestHandleSignalsStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	daemon := &fakeDaemon{}

	done := make(chan struct{})
	go func() {
		handleSignals(ctx, daemon, make(chan os.Signal))
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("signal handler did not return after cancel")
	}
	if daemon.shutdowns != 0 {
		t.Fatalf("expected no shutdown on context cancel")
	}
}

func TestPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pids.json")

	pids, err := ReadPIDs(path)
	if err != nil || len(pids) != 0 {
		t.Fatalf("expected empty pids for missing file, got %v %v", pids, err)
	}

	child := exec.Command("sleep", "30")
	if err := child.Start(); err != nil {
		t.Skipf("cannot start helper process: %v", err)
	}
	exited := make(chan error, 1)
	go func() { exited <- child.Wait() }()
	defer child.Process.Kill()

	if err := RecordPID(path, "receiver", os.Getpid()); err != nil {
		t.Fatalf("unexpected record error: %v", err)
	}
	if err := RecordPID(path, "sender", child.Process.Pid); err != nil {
		t.Fatalf("unexpected record error: %v", err)
	}

	pids, err = ReadPIDs(path)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if pids["receiver"] != os.Getpid() || pids["sender"] != child.Process.Pid {
		t.Fatalf("unexpected recorded pids %v", pids)
	}

	terminated, failed, err := TerminateOthers(path, "receiver")
	if err != nil {
		t.Fatalf("unexpected terminate error: %v", err)
	}
	if terminated["sender"] != child.Process.Pid || len(failed) != 0 {
		t.Fatalf("unexpected terminate result %v failed %v", terminated, failed)
	}

	select {
	case err := <-exited:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("expected helper to exit by signal, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("helper process not terminated")
	}
}

func TestReadPIDsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pids.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed writing file: %v", err)
	}
	pids, err := ReadPIDs(path)
	if err != nil || len(pids) != 0 {
		t.Fatalf("expected corrupt file to read as empty, got %v %v", pids, err)
	}
}

func TestInhibitorReleaseNil(t *testing.T) {
	var inhibitor *Inhibitor
	if err := inhibitor.Release(); err != nil {
		t.Fatalf("expected nil release to be a no-op, got %v", err)
	}
}
