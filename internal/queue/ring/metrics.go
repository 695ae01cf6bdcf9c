package ring

import (
	"framelink/internal/metrics"
	"time"
)

func (queue *Queue[T]) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	depth := queue.Metrics.Depth.Load()
	pushed := queue.Metrics.Pushed.Swap(0)
	dropped := queue.Metrics.Dropped.Swap(0)
	popped := queue.Metrics.Popped.Swap(0)

	recordTime := time.Now()

	collection = []metrics.Metric{
		{
			Name:        "depth",
			Description: "Items waiting in the queue",
			Namespace:   queue.Namespace,
			Value:       metrics.MetricValue{Raw: depth, Unit: "count", Interval: interval},
			Type:        metrics.Gauge,
			Timestamp:   recordTime,
		},
		{
			Name:        "capacity",
			Description: "Maximum items the queue can hold",
			Namespace:   queue.Namespace,
			Value:       metrics.MetricValue{Raw: uint64(queue.Size), Unit: "count", Interval: interval},
			Type:        metrics.Gauge,
			Timestamp:   recordTime,
		},
		{
			Name:        "pushed",
			Description: "Items accepted in the interval",
			Namespace:   queue.Namespace,
			Value:       metrics.MetricValue{Raw: pushed, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "dropped",
			Description: "Items rejected because the queue was full",
			Namespace:   queue.Namespace,
			Value:       metrics.MetricValue{Raw: dropped, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
		{
			Name:        "popped",
			Description: "Items consumed in the interval",
			Namespace:   queue.Namespace,
			Value:       metrics.MetricValue{Raw: popped, Unit: "count", Interval: interval},
			Type:        metrics.Counter,
			Timestamp:   recordTime,
		},
	}
	return
}
