package capture

import (
	"framelink/internal/metrics"
	"time"
)

func (writer *Writer) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	if writer == nil {
		return
	}
	recordTime := time.Now()

	counters := []struct {
		name, description, unit string
		value                   uint64
	}{
		{"packets_written", "Datagrams written to the capture file", "count", writer.Metrics.Written.Swap(0)},
		{"bytes_written", "Packet bytes written to the capture file", "bytes", writer.Metrics.Bytes.Swap(0)},
		{"packets_dropped", "Datagrams dropped because the capture queue was full", "count", writer.Metrics.Dropped.Swap(0)},
		{"write_failures", "Datagrams that failed to encode or write", "count", writer.Metrics.Failed.Swap(0)},
	}
	for _, counter := range counters {
		collection = append(collection, metrics.Metric{
			Name:        counter.name,
			Description: counter.description,
			Namespace:   writer.Namespace,
			Value:       metrics.MetricValue{Raw: counter.value, Unit: counter.unit, Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		})
	}
	collection = append(collection, writer.queue.CollectMetrics(interval)...)
	return
}
