package sender

import (
	"framelink/internal/global"
	"framelink/internal/metrics"
	"time"
)

// Frame level counters of the send loop
func (daemon *Daemon) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	recordTime := time.Now()
	namespace := []string{global.NSSend}

	collection = []metrics.Metric{
		{
			Name:        "frames_sent",
			Description: "Frames fragmented and handed to the transmitter",
			Namespace:   namespace,
			Value: metrics.MetricValue{
				Raw:      daemon.Metrics.FramesSent.Swap(0),
				Unit:     "count",
				Interval: interval,
			},
			Type:      metrics.Counter,
			Timestamp: recordTime,
		},
		{
			Name:        "frames_dropped",
			Description: "Frames that could not be fragmented under the payload cap",
			Namespace:   namespace,
			Value: metrics.MetricValue{
				Raw:      daemon.Metrics.FramesDropped.Swap(0),
				Unit:     "count",
				Interval: interval,
			},
			Type:      metrics.Counter,
			Timestamp: recordTime,
		},
		{
			Name:        "empty_reads",
			Description: "Source reads that failed or returned no frame",
			Namespace:   namespace,
			Value: metrics.MetricValue{
				Raw:      daemon.Metrics.SourceErrors.Swap(0),
				Unit:     "count",
				Interval: interval,
			},
			Type:      metrics.Counter,
			Timestamp: recordTime,
		},
	}
	return
}
