package reassembly

import (
	"framelink/internal/metrics"
	"time"
)

func (reasm *Reassembler) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	// Read and clear
	counters := []struct {
		name        string
		description string
		value       uint64
	}{
		{"fragments_accepted", "Fragments stored into a frame buffer", reasm.Metrics.Fragments.Swap(0)},
		{"frames_completed", "Frames fully reassembled", reasm.Metrics.Completed.Swap(0)},
		{"frames_lost", "Frames presumed lost from frame id gaps", reasm.Metrics.Lost.Swap(0)},
		{"fragments_late", "Fragments rejected for arriving behind the lag window", reasm.Metrics.Late.Swap(0)},
		{"fragments_duplicate", "Fragments for frames already completed or evicted", reasm.Metrics.Duplicates.Swap(0)},
		{"fragments_rejected", "Fragments with inconsistent fragment counts", reasm.Metrics.Rejected.Swap(0)},
		{"tracker_resyncs", "Loss tracker restarts after a large backwards frame id jump", reasm.Metrics.Resyncs.Swap(0)},
		{"evicted_lag", "Partial frames dropped for lagging the newest frame", reasm.Metrics.EvictedLag.Swap(0)},
		{"evicted_idle", "Partial frames dropped after the idle timeout", reasm.Metrics.EvictedIdle.Swap(0)},
		{"evicted_memory", "Partial frames dropped to honour the buffer memory cap", reasm.Metrics.EvictedMemory.Swap(0)},
	}

	recordTime := time.Now()

	for _, counter := range counters {
		collection = append(collection, metrics.Metric{
			Name:        counter.name,
			Description: counter.description,
			Namespace:   reasm.Namespace,
			Value: metrics.MetricValue{
				Raw:      counter.value,
				Unit:     "count",
				Interval: interval,
			},
			Type:      metrics.Counter,
			Timestamp: recordTime,
		})
	}

	collection = append(collection,
		metrics.Metric{
			Name:        "buffered_frames",
			Description: "Partial frames currently held",
			Namespace:   reasm.Namespace,
			Value: metrics.MetricValue{
				Raw:      reasm.Metrics.BufferedFrames.Load(),
				Unit:     "count",
				Interval: interval,
			},
			Type:      metrics.Gauge,
			Timestamp: recordTime,
		},
		metrics.Metric{
			Name:        "buffered_bytes",
			Description: "Payload bytes held by partial frames",
			Namespace:   reasm.Namespace,
			Value: metrics.MetricValue{
				Raw:      reasm.Metrics.BufferedBytes.Load(),
				Unit:     "bytes",
				Interval: interval,
			},
			Type:      metrics.Gauge,
			Timestamp: recordTime,
		},
		metrics.Metric{
			Name:        "buffered_bytes_max",
			Description: "Highest buffered payload bytes seen in the interval",
			Namespace:   reasm.Namespace,
			Value: metrics.MetricValue{
				Raw:      reasm.Metrics.PeakBytes.Swap(reasm.Metrics.BufferedBytes.Load()),
				Unit:     "bytes",
				Interval: interval,
			},
			Type:      metrics.Summary,
			Timestamp: recordTime,
		},
	)
	return
}
