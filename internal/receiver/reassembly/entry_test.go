package reassembly

import (
	"bytes"
	"framelink/internal/global"
	"framelink/pkg/protocol"
	"math"
	"math/rand"
	"testing"
	"time"
)

type fragment struct {
	header  protocol.Header
	payload []byte
}

func splitFrame(t *testing.T, frame []byte, frameID uint32, limit int) (fragments []fragment) {
	t.Helper()

	packets, err := protocol.Fragment(frame, frameID, limit, protocol.CodecJPEG, 0, 1700000000000)
	if err != nil {
		t.Fatalf("unexpected fragment error: %v", err)
	}
	for _, packet := range packets {
		header, payload, err := protocol.Decode(packet)
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		fragments = append(fragments, fragment{header: header, payload: payload})
	}
	return
}

func randomFrame(size int, seed int64) (frame []byte) {
	frame = make([]byte, size)
	rand.New(rand.NewSource(seed)).Read(frame)
	return
}

func newTestReassembler(cfg Config) *Reassembler {
	if cfg.MaxBufferedBytes == 0 {
		cfg.MaxBufferedBytes = 64 * 1024 * 1024
	}
	return New([]string{global.NSTest}, cfg)
}

func TestEndToEndSingleFrame(t *testing.T) {
	frame := randomFrame(10000, 1)
	fragments := splitFrame(t, frame, 0, 1300)
	if len(fragments) != 8 {
		t.Fatalf("expected 8 fragments, got %d", len(fragments))
	}

	reasm := newTestReassembler(Config{})
	var completions int
	var lost uint64
	for i, frag := range fragments {
		result := reasm.Push(frag.header, frag.payload, time.Now())
		lost += result.LostDelta
		if result.Completed {
			completions++
			if i != len(fragments)-1 {
				t.Fatalf("completed early at fragment %d", i)
			}
			if !bytes.Equal(result.Frame, frame) {
				t.Fatal("reassembled frame differs from original")
			}
		}
	}

	if completions != 1 {
		t.Fatalf("expected 1 completion, got %d", completions)
	}
	if lost != 0 {
		t.Fatalf("expected zero loss, got %d", lost)
	}
	if frames, bufferedBytes := reasm.Buffered(); frames != 0 || bufferedBytes != 0 {
		t.Fatalf("expected empty buffers, got %d frames %d bytes", frames, bufferedBytes)
	}
}

func TestOrderIndependence(t *testing.T) {
	frame := randomFrame(4099, 2)

	for seed := int64(0); seed < 20; seed++ {
		fragments := splitFrame(t, frame, 3, 512)
		rand.New(rand.NewSource(seed)).Shuffle(len(fragments), func(i, j int) {
			fragments[i], fragments[j] = fragments[j], fragments[i]
		})

		reasm := newTestReassembler(Config{})
		var completions int
		for i, frag := range fragments {
			result := reasm.Push(frag.header, frag.payload, time.Now())
			if !result.Completed {
				continue
			}
			completions++
			if i != len(fragments)-1 {
				t.Fatalf("seed %d: completed after %d of %d fragments", seed, i+1, len(fragments))
			}
			if !bytes.Equal(result.Frame, frame) {
				t.Fatalf("seed %d: reassembled frame differs", seed)
			}
		}
		if completions != 1 {
			t.Fatalf("seed %d: expected 1 completion, got %d", seed, completions)
		}
	}
}

func TestDuplicateFragmentNoop(t *testing.T) {
	frame := randomFrame(3000, 3)
	fragments := splitFrame(t, frame, 9, 1300)

	reasm := newTestReassembler(Config{})
	reasm.Push(fragments[0].header, fragments[0].payload, time.Now())
	_, before := reasm.Buffered()

	result := reasm.Push(fragments[0].header, fragments[0].payload, time.Now())
	if result.Completed || result.Rejected {
		t.Fatalf("duplicate fragment changed state: %+v", result)
	}
	if _, after := reasm.Buffered(); after != before {
		t.Fatalf("duplicate fragment double counted bytes: %d then %d", before, after)
	}

	var completed []byte
	for _, frag := range fragments[1:] {
		if result := reasm.Push(frag.header, frag.payload, time.Now()); result.Completed {
			completed = result.Frame
		}
	}
	if !bytes.Equal(completed, frame) {
		t.Fatal("frame did not reassemble after duplicate")
	}

	// Late copy of an already completed frame
	result = reasm.Push(fragments[1].header, fragments[1].payload, time.Now())
	if !result.Duplicate || result.Completed {
		t.Fatalf("expected duplicate of completed frame, got %+v", result)
	}
}

func TestEvictionBound(t *testing.T) {
	reasm := newTestReassembler(Config{EvictionLag: 5})

	var evicted uint64
	for fid := uint32(0); fid < 50; fid++ {
		// Withhold the final fragment of every frame
		fragments := splitFrame(t, randomFrame(2600, int64(fid)), fid, 1300)
		for _, frag := range fragments[:len(fragments)-1] {
			result := reasm.Push(frag.header, frag.payload, time.Now())
			evicted += result.Evicted[EvictLag]
		}

		if frames, _ := reasm.Buffered(); frames > 6 {
			t.Fatalf("after frame %d: %d buffered frames exceeds bound", fid, frames)
		}
	}

	if frames, _ := reasm.Buffered(); frames != 5 {
		t.Fatalf("expected 5 frames inside the lag window, got %d", frames)
	}
	if evicted != 45 {
		t.Fatalf("expected 45 lag evictions, got %d", evicted)
	}
}

func TestWithheldFrameEvictedThenLate(t *testing.T) {
	reasm := newTestReassembler(Config{EvictionLag: 5})

	withheld := splitFrame(t, randomFrame(2600, 1), 0, 1300)
	reasm.Push(withheld[0].header, withheld[0].payload, time.Now())

	for fid := uint32(1); fid <= 6; fid++ {
		for _, frag := range splitFrame(t, randomFrame(100, int64(fid)), fid, 1300) {
			reasm.Push(frag.header, frag.payload, time.Now())
		}
	}

	if frames, _ := reasm.Buffered(); frames != 0 {
		t.Fatalf("expected withheld frame evicted, %d frames buffered", frames)
	}

	result := reasm.Push(withheld[1].header, withheld[1].payload, time.Now())
	if !result.Late {
		t.Fatalf("expected late rejection of missing fragment, got %+v", result)
	}
}

func TestLossEstimation(t *testing.T) {
	tests := []struct {
		name     string
		frameIDs []uint32
		wantLost uint64
	}{
		{name: "gap of two", frameIDs: []uint32{0, 1, 2, 5, 6}, wantLost: 2},
		{name: "reordered no double count", frameIDs: []uint32{0, 2, 1}, wantLost: 1},
		{name: "single frame", frameIDs: []uint32{7}, wantLost: 0},
		{name: "first id not zero", frameIDs: []uint32{100, 101, 103}, wantLost: 1},
		{name: "wraps around", frameIDs: []uint32{math.MaxUint32 - 1, math.MaxUint32, 0, 2}, wantLost: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasm := newTestReassembler(Config{})

			var lost uint64
			var completed int
			for _, fid := range tt.frameIDs {
				for _, frag := range splitFrame(t, []byte{0xff, 0xd8, byte(fid)}, fid, 1300) {
					result := reasm.Push(frag.header, frag.payload, time.Now())
					lost += result.LostDelta
					if result.Completed {
						completed++
					}
				}
			}

			if lost != tt.wantLost {
				t.Fatalf("expected %d lost, got %d", tt.wantLost, lost)
			}
			if completed != len(tt.frameIDs) {
				t.Fatalf("expected %d completions, got %d", len(tt.frameIDs), completed)
			}
			if got := reasm.Metrics.Lost.Load(); got != tt.wantLost {
				t.Fatalf("metric lost %d, want %d", got, tt.wantLost)
			}
		})
	}
}

func TestResyncOnFarJump(t *testing.T) {
	tests := []struct {
		name         string
		from, to     uint32
		expectResync bool
		expectLost   uint64
	}{
		{name: "far backwards", from: 500000, to: 0, expectResync: true},
		{name: "far forwards", from: 2, to: 1000000, expectResync: true},
		{name: "forwards inside distance is loss", from: 2, to: 102, expectLost: 99},
		{name: "backwards across wrap", from: 10, to: math.MaxUint32 - 10000, expectResync: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasm := newTestReassembler(Config{})
			for _, frag := range splitFrame(t, []byte{1}, tt.from, 1300) {
				reasm.Push(frag.header, frag.payload, time.Now())
			}

			frag := splitFrame(t, []byte{2}, tt.to, 1300)[0]
			result := reasm.Push(frag.header, frag.payload, time.Now())
			if result.Resynced != tt.expectResync || !result.Completed {
				t.Fatalf("expected resync=%v and completion, got %+v", tt.expectResync, result)
			}
			if result.LostDelta != tt.expectLost {
				t.Fatalf("expected %d lost, got %d", tt.expectLost, result.LostDelta)
			}
			if next, _ := reasm.Expected(); next != tt.to+1 {
				t.Fatalf("expected tracker at %d, got %d", tt.to+1, next)
			}
		})
	}
}

func TestSenderRestartResumes(t *testing.T) {
	reasm := newTestReassembler(Config{EvictionLag: 5})

	push := func(fid uint32) (completed bool) {
		fragments := splitFrame(t, randomFrame(3000, int64(fid)), fid, 1300)
		if len(fragments) != 3 {
			t.Fatalf("expected 3 fragments, got %d", len(fragments))
		}
		for _, frag := range fragments {
			if reasm.Push(frag.header, frag.payload, time.Now()).Completed {
				completed = true
			}
		}
		return
	}

	for fid := uint32(0); fid < 1000; fid++ {
		push(fid)
	}

	var completed int
	for fid := uint32(0); fid < 300; fid++ {
		if push(fid) {
			completed++
		}
	}

	// The frames that establish the restart are lost
	if want := 300 - (restartRunFrames - 1); completed != want {
		t.Fatalf("expected %d frames completed after restart, got %d (late=%d)",
			want, completed, reasm.Metrics.Late.Load())
	}
	if got := reasm.Metrics.Resyncs.Load(); got != 1 {
		t.Fatalf("expected one resync, got %d", got)
	}
	if next, _ := reasm.Expected(); next != 300 {
		t.Fatalf("expected tracker at 300, got %d", next)
	}
}

func TestStragglersStayLate(t *testing.T) {
	tests := []struct {
		name       string
		stragglers []uint32
		interleave bool
	}{
		{name: "unordered run", stragglers: []uint32{50, 40, 60, 30}},
		{name: "ascending between live frames", stragglers: []uint32{50, 51, 52, 53}, interleave: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasm := newTestReassembler(Config{EvictionLag: 5})
			for fid := uint32(0); fid < 100; fid++ {
				for _, frag := range splitFrame(t, []byte{byte(fid)}, fid, 1300) {
					reasm.Push(frag.header, frag.payload, time.Now())
				}
			}

			live := uint32(100)
			for _, fid := range tt.stragglers {
				frag := splitFrame(t, []byte{byte(fid)}, fid, 1300)[0]
				result := reasm.Push(frag.header, frag.payload, time.Now())
				if !result.Late || result.Resynced {
					t.Fatalf("straggler %d: expected late without resync, got %+v", fid, result)
				}
				if tt.interleave {
					frag := splitFrame(t, []byte{byte(live)}, live, 1300)[0]
					if !reasm.Push(frag.header, frag.payload, time.Now()).Completed {
						t.Fatalf("live frame %d did not complete", live)
					}
					live++
				}
			}
			if got := reasm.Metrics.Resyncs.Load(); got != 0 {
				t.Fatalf("expected no resync, got %d", got)
			}
		})
	}
}

func TestRejectInconsistentFragments(t *testing.T) {
	reasm := newTestReassembler(Config{})

	fragments := splitFrame(t, randomFrame(3000, 4), 1, 1300)
	reasm.Push(fragments[0].header, fragments[0].payload, time.Now())

	conflicting := fragments[1].header
	conflicting.TotalFragments = 7
	if result := reasm.Push(conflicting, fragments[1].payload, time.Now()); !result.Rejected {
		t.Fatalf("expected rejection on total mismatch, got %+v", result)
	}

	outOfRange := fragments[1].header
	outOfRange.FragmentIndex = outOfRange.TotalFragments
	if result := reasm.Push(outOfRange, fragments[1].payload, time.Now()); !result.Rejected {
		t.Fatalf("expected rejection on index out of range, got %+v", result)
	}

	if got := reasm.Metrics.Rejected.Load(); got != 2 {
		t.Fatalf("expected 2 rejected, got %d", got)
	}
}

func TestSweepIdleTimeout(t *testing.T) {
	base := time.Now()
	frag := splitFrame(t, randomFrame(2600, 5), 0, 1300)[0]

	disabled := newTestReassembler(Config{})
	disabled.Push(frag.header, frag.payload, base)
	if evicted := disabled.Sweep(base.Add(time.Hour)); evicted != 0 {
		t.Fatalf("disabled timeout evicted %d frames", evicted)
	}

	reasm := newTestReassembler(Config{IdleTimeout: 100 * time.Millisecond})
	reasm.Push(frag.header, frag.payload, base)

	if evicted := reasm.Sweep(base.Add(50 * time.Millisecond)); evicted != 0 {
		t.Fatalf("evicted %d frames before timeout", evicted)
	}
	if evicted := reasm.Sweep(base.Add(200 * time.Millisecond)); evicted != 1 {
		t.Fatalf("expected 1 idle eviction, got %d", evicted)
	}
	if got := reasm.Metrics.EvictedIdle.Load(); got != 1 {
		t.Fatalf("expected idle eviction metric 1, got %d", got)
	}
}

func TestMemoryCapEvictsOldest(t *testing.T) {
	base := time.Now()
	reasm := newTestReassembler(Config{MaxBufferedBytes: 1000})

	first := splitFrame(t, randomFrame(1200, 6), 0, 600)
	second := splitFrame(t, randomFrame(1200, 7), 1, 600)

	reasm.Push(first[0].header, first[0].payload, base)
	result := reasm.Push(second[0].header, second[0].payload, base.Add(time.Millisecond))

	if result.Evicted[EvictMemory] != 1 {
		t.Fatalf("expected one memory eviction, got %+v", result.Evicted)
	}
	frames, held := reasm.Buffered()
	if frames != 1 || held != 600 {
		t.Fatalf("expected only newest frame held, got %d frames %d bytes", frames, held)
	}
	if result := reasm.Push(first[1].header, first[1].payload, base); !result.Duplicate {
		t.Fatalf("evicted frame must not be reinserted, got %+v", result)
	}
}

func TestCollectMetricsResets(t *testing.T) {
	reasm := newTestReassembler(Config{})
	for _, frag := range splitFrame(t, randomFrame(500, 8), 0, 1300) {
		reasm.Push(frag.header, frag.payload, time.Now())
	}

	find := func(collection []metricValue, name string) uint64 {
		for _, m := range collection {
			if m.name == name {
				return m.value
			}
		}
		t.Fatalf("metric %s not collected", name)
		return 0
	}

	first := flatten(reasm.CollectMetrics(time.Second))
	if got := find(first, "frames_completed"); got != 1 {
		t.Fatalf("expected 1 completed, got %d", got)
	}

	second := flatten(reasm.CollectMetrics(time.Second))
	if got := find(second, "frames_completed"); got != 0 {
		t.Fatalf("expected counter reset, got %d", got)
	}
}
