package beats

import (
	"framelink/internal/metrics"
	"time"
)

func (exporter *Exporter) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	if exporter == nil {
		return
	}
	recordTime := time.Now()

	counters := []struct {
		name, description string
		value             uint64
	}{
		{"events_sent", "Metric events acknowledged by the beats server", exporter.Metrics.Sent.Swap(0)},
		{"events_failed", "Metric events that could not be delivered", exporter.Metrics.Failed.Swap(0)},
		{"reconnects", "Connections opened to the beats server", exporter.Metrics.Reconnects.Swap(0)},
	}
	for _, counter := range counters {
		collection = append(collection, metrics.Metric{
			Name:        counter.name,
			Description: counter.description,
			Namespace:   exporter.Namespace,
			Value:       metrics.MetricValue{Raw: counter.value, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		})
	}
	collection = append(collection, exporter.queue.CollectMetrics(interval)...)
	return
}
