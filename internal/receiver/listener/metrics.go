package listener

import (
	"framelink/internal/metrics"
	"time"
)

func (storage *MetricStorage) collect(namespace []string, interval time.Duration, recordTime time.Time) (collection []metrics.Metric) {
	// Read and clear
	busyNs := storage.BusyNs.Swap(0)
	valid := storage.ValidPackets.Swap(0)
	invalid := storage.InvalidPackets.Swap(0)
	bytes := storage.Bytes.Swap(0)
	maxNs := storage.MaxNs.Swap(0)
	readErrors := storage.ReadErrors.Swap(0)

	// Percent listener was busy
	var busyPct float64
	if interval > 0 {
		busyPct = (float64(busyNs) / float64(interval.Nanoseconds())) * 100
	}

	total := valid + invalid
	var avgNs uint64
	if total > 0 {
		avgNs = busyNs / total
	}

	entries := []struct {
		name, description, unit string
		raw                     interface{}
		kind                    metrics.MetricType
	}{
		{"busy_time_percent", "Time spent handling datagrams in the interval", "%", busyPct, metrics.Summary},
		{"valid_packets_total", "Datagrams that decoded in the interval", "count", valid, metrics.Counter},
		{"invalid_packets_total", "Datagrams that failed to decode in the interval", "count", invalid, metrics.Counter},
		{"total_packets", "Datagrams received in the interval", "count", total, metrics.Counter},
		{"bytes_received", "Datagram bytes received in the interval", "bytes", bytes, metrics.Counter},
		{"read_errors_total", "Socket read errors in the interval", "count", readErrors, metrics.Counter},
		{"elapsed_time_avg_ns", "Average time spent handling one datagram in the interval", "ns", avgNs, metrics.Summary},
		{"elapsed_time_max_ns", "Maximum (seen) time spent handling one datagram in the interval", "ns", maxNs, metrics.Summary},
	}
	for _, entry := range entries {
		collection = append(collection, metrics.Metric{
			Name:        entry.name,
			Description: entry.description,
			Namespace:   namespace,
			Value: metrics.MetricValue{
				Raw:      entry.raw,
				Unit:     entry.unit,
				Interval: interval,
			},
			Type:      entry.kind,
			Timestamp: recordTime,
		})
	}
	return
}

func (video *Video) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	recordTime := time.Now()
	collection = video.Metrics.collect(video.Namespace, interval, recordTime)

	if video.filter != nil {
		total, err := video.filter.Dropped()
		if err == nil {
			previous := video.kernelDrops.Swap(total)
			var delta uint64
			if total >= previous {
				delta = total - previous
			}
			collection = append(collection, metrics.Metric{
				Name:        "kernel_filtered_packets_total",
				Description: "Datagrams dropped by the kernel socket filter in the interval",
				Namespace:   video.Namespace,
				Value:       metrics.MetricValue{Raw: delta, Unit: "count", Interval: interval},
				Type:        metrics.Counter,
				Timestamp:   recordTime,
			})
		}
	}

	collection = append(collection, video.reasm.CollectMetrics(interval)...)
	return
}

func (side *Metrics) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	collection = side.Metrics.collect(side.Namespace, interval, time.Now())
	return
}
