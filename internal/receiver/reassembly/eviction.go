package reassembly

import "time"

func (result *Result) addEvicted(reason EvictReason, count uint64) {
	if count == 0 {
		return
	}
	if result.Evicted == nil {
		result.Evicted = make(map[EvictReason]uint64)
	}
	result.Evicted[reason] += count
}

// Drops buffered frames more than the lag behind the tracker, except the current frame.
// Also forgets closed ids that have left the window.
func (reasm *Reassembler) evictLagging(current uint32, result *Result) {
	lag := int32(reasm.cfg.EvictionLag)

	var evicted uint64
	for fid := range reasm.frames {
		if fid == current {
			continue
		}
		if distance(reasm.expected, fid) > lag {
			reasm.drop(fid)
			evicted++
		}
	}

	for fid := range reasm.closed {
		if distance(reasm.expected, fid) > lag {
			delete(reasm.closed, fid)
		}
	}

	result.addEvicted(EvictLag, evicted)
	reasm.Metrics.EvictedLag.Add(evicted)
}

// Drops the oldest partial frames until buffered bytes fit the cap
func (reasm *Reassembler) enforceMemory(result *Result) {
	var evicted uint64
	for reasm.bufferedBytes > reasm.cfg.MaxBufferedBytes && len(reasm.frames) > 0 {
		var oldest *frameBuffer
		for _, buffer := range reasm.frames {
			if oldest == nil || buffer.firstSeen.Before(oldest.firstSeen) ||
				(buffer.firstSeen.Equal(oldest.firstSeen) && distance(oldest.frameID, buffer.frameID) > 0) {
				oldest = buffer
			}
		}
		reasm.drop(oldest.frameID)
		evicted++
	}

	result.addEvicted(EvictMemory, evicted)
	reasm.Metrics.EvictedMemory.Add(evicted)
}

// Idle-timeout eviction. No-op when the timeout is disabled.
func (reasm *Reassembler) Sweep(now time.Time) (evicted int) {
	if reasm.cfg.IdleTimeout <= 0 {
		return
	}

	for fid, buffer := range reasm.frames {
		if now.Sub(buffer.lastUpdate) > reasm.cfg.IdleTimeout {
			reasm.drop(fid)
			evicted++
		}
	}

	if evicted > 0 {
		reasm.Metrics.EvictedIdle.Add(uint64(evicted))
		reasm.publishGauges()
	}
	return
}
