package stats

import (
	"framelink/internal/global"
	"framelink/pkg/protocol"
	"testing"
	"time"
)

func TestReceiverInitialSnapshot(t *testing.T) {
	snapshot := NewReceiver([]string{global.NSTest}).Snapshot()
	if snapshot.LastFrameID != -1 {
		t.Fatalf("expected last frame id -1, got %d", snapshot.LastFrameID)
	}
	if snapshot.FramesDecoded != 0 || snapshot.AvgFPS != 0 || snapshot.AvgDelayMs != 0 {
		t.Fatalf("expected zeroed snapshot, got %+v", snapshot)
	}
}

func TestReceiverCompletionSamples(t *testing.T) {
	receiver := NewReceiver([]string{global.NSTest})
	base := time.UnixMilli(1700000000000)

	// First completion: no fps sample yet, delay 40ms
	receiver.RecordCompletion(1, uint64(base.Add(-40*time.Millisecond).UnixMilli()), base)
	snapshot := receiver.Snapshot()
	if snapshot.LastFPS != 0 || snapshot.AvgFPS != 0 {
		t.Fatalf("first completion must not yield fps, got %+v", snapshot)
	}
	if snapshot.LastDelayMs != 40 || snapshot.AvgDelayMs != 40 {
		t.Fatalf("expected delay 40, got last=%d avg=%d", snapshot.LastDelayMs, snapshot.AvgDelayMs)
	}

	// 100ms later: 10 fps, header timestamp absent
	receiver.RecordCompletion(2, 0, base.Add(100*time.Millisecond))
	snapshot = receiver.Snapshot()
	if snapshot.LastFPS != 10 {
		t.Fatalf("expected 10 fps, got %v", snapshot.LastFPS)
	}
	if snapshot.LastDelayMs != 40 {
		t.Fatalf("zero header timestamp must not add a delay sample, got %d", snapshot.LastDelayMs)
	}

	// Same instant: dt == 0 yields no fps sample
	receiver.RecordCompletion(3, 0, base.Add(100*time.Millisecond))
	snapshot = receiver.Snapshot()
	if snapshot.AvgFPS != 10 {
		t.Fatalf("zero dt must not add a sample, avg=%v", snapshot.AvgFPS)
	}

	// Header in the future clamps to zero delay
	receiver.RecordCompletion(4, uint64(base.Add(time.Hour).UnixMilli()), base.Add(200*time.Millisecond))
	snapshot = receiver.Snapshot()
	if snapshot.LastDelayMs != 0 {
		t.Fatalf("expected clamped delay 0, got %d", snapshot.LastDelayMs)
	}
	if snapshot.AvgDelayMs != 20 {
		t.Fatalf("expected avg delay 20, got %d", snapshot.AvgDelayMs)
	}

	if snapshot.FramesDecoded != 4 || snapshot.LastFrameID != 4 {
		t.Fatalf("unexpected counters %+v", snapshot)
	}
}

func TestReceiverSixtySampleAverage(t *testing.T) {
	receiver := NewReceiver([]string{global.NSTest})
	base := time.UnixMilli(1700000000000)

	// 61 completions spaced 50ms apart: 60 fps samples of exactly 20fps
	for i := 0; i <= 60; i++ {
		receiver.RecordCompletion(uint32(i), 0, base.Add(time.Duration(i)*50*time.Millisecond))
	}
	snapshot := receiver.Snapshot()
	if snapshot.AvgFPS < 19.999 || snapshot.AvgFPS > 20.001 {
		t.Fatalf("expected avg fps 20, got %v", snapshot.AvgFPS)
	}

	// One slow frame replaces the oldest sample
	receiver.RecordCompletion(61, 0, base.Add(60*50*time.Millisecond+time.Second))
	snapshot = receiver.Snapshot()
	expect := (59*20.0 + 1.0) / 60
	if snapshot.AvgFPS < expect-0.001 || snapshot.AvgFPS > expect+0.001 {
		t.Fatalf("expected avg fps %v, got %v", expect, snapshot.AvgFPS)
	}
}

func TestReceiverCounters(t *testing.T) {
	receiver := NewReceiver([]string{global.NSTest})
	receiver.RecordPacket(100)
	receiver.RecordPacket(24)
	receiver.RecordMalformed()
	receiver.RecordLate()
	receiver.RecordDuplicate()
	receiver.RecordLoss(3)
	receiver.RecordLoss(0)
	receiver.RecordEvicted("lag", 2)
	receiver.RecordEvicted("idle", 0)

	snapshot := receiver.Snapshot()
	if snapshot.PacketsReceived != 2 || snapshot.BytesReceived != 124 {
		t.Fatalf("unexpected packet counters %+v", snapshot)
	}
	if snapshot.MalformedPackets != 1 || snapshot.LateFragments != 1 || snapshot.DuplicateFrags != 1 {
		t.Fatalf("unexpected error counters %+v", snapshot)
	}
	if snapshot.FramesLost != 3 {
		t.Fatalf("expected 3 lost, got %d", snapshot.FramesLost)
	}
	if len(snapshot.EvictedFrames) != 1 || snapshot.EvictedFrames["lag"] != 2 {
		t.Fatalf("unexpected evictions %v", snapshot.EvictedFrames)
	}

	// Snapshot maps must be independent copies
	snapshot.EvictedFrames["lag"] = 100
	if receiver.Snapshot().EvictedFrames["lag"] != 2 {
		t.Fatal("snapshot shares eviction map with receiver")
	}
}

func TestServerViewMerge(t *testing.T) {
	view := NewServerView([]string{global.NSTest})

	full, err := protocol.DecodeSnapshot([]byte(`{"server_fps":30,"server_bitrate_kbps":900,"server_bytes_sent":10,"server_packets_sent":2,"timestamp_ms":5}`))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	view.Merge(full, time.Now())

	partial, err := protocol.DecodeSnapshot([]byte(`{"server_fps":25}`))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	view.Merge(partial, time.Now())

	snapshot := view.Snapshot()
	expect := protocol.SenderSnapshot{FPS: 25, BitrateKbps: 900, BytesSent: 10, PacketsSent: 2, TimestampMs: 5}
	if snapshot != expect {
		t.Fatalf("expected %+v, got %+v", expect, snapshot)
	}

	view.RecordDropped()
	updates, dropped, lastSeen := view.Counters()
	if updates != 2 || dropped != 1 || lastSeen.IsZero() {
		t.Fatalf("unexpected counters updates=%d dropped=%d lastSeen=%v", updates, dropped, lastSeen)
	}
}

func TestCollectMetricsNamespaces(t *testing.T) {
	receiver := NewReceiver([]string{"Receiver", "Video"})
	collection := receiver.CollectMetrics(time.Second)
	if len(collection) == 0 {
		t.Fatal("expected receiver metrics")
	}
	for _, metric := range collection {
		if len(metric.Namespace) != 2 || metric.Namespace[1] != "Video" {
			t.Fatalf("unexpected namespace %v", metric.Namespace)
		}
	}

	view := NewServerView([]string{"Receiver", "SideChannel"})
	if got := len(view.CollectMetrics(time.Second)); got != 6 {
		t.Fatalf("expected 6 server metrics, got %d", got)
	}
}
