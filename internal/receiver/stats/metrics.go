package stats

import (
	"framelink/internal/metrics"
	"time"
)

func gauge(namespace []string, name, description, unit string, raw interface{}, interval time.Duration, at time.Time) (metric metrics.Metric) {
	metric = metrics.Metric{
		Name:        name,
		Description: description,
		Namespace:   namespace,
		Value: metrics.MetricValue{
			Raw:      raw,
			Unit:     unit,
			Interval: interval,
		},
		Type:      metrics.Gauge,
		Timestamp: at,
	}
	return
}

// Window derived link quality. Counters here are cumulative and never reset.
func (receiver *Receiver) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	snapshot := receiver.Snapshot()
	recordTime := time.Now()
	ns := receiver.Namespace

	collection = []metrics.Metric{
		gauge(ns, "packets_received_total", "Datagrams received on the video socket", "count", snapshot.PacketsReceived, interval, recordTime),
		gauge(ns, "bytes_received_total", "Bytes received on the video socket", "bytes", snapshot.BytesReceived, interval, recordTime),
		gauge(ns, "frames_decoded_total", "Frames reassembled", "count", snapshot.FramesDecoded, interval, recordTime),
		gauge(ns, "frames_lost_total", "Frames presumed lost", "count", snapshot.FramesLost, interval, recordTime),
		gauge(ns, "malformed_packets_total", "Datagrams failing header validation", "count", snapshot.MalformedPackets, interval, recordTime),
		gauge(ns, "avg_fps", "Mean completion rate over the sample window", "fps", snapshot.AvgFPS, interval, recordTime),
		gauge(ns, "avg_delay_ms", "Mean frame delay over the sample window", "ms", snapshot.AvgDelayMs, interval, recordTime),
		gauge(ns, "delay_p50_ms", "Median frame delay over the sample window", "ms", snapshot.DelayP50Ms, interval, recordTime),
		gauge(ns, "delay_p95_ms", "95th percentile frame delay over the sample window", "ms", snapshot.DelayP95Ms, interval, recordTime),
		gauge(ns, "delay_p99_ms", "99th percentile frame delay over the sample window", "ms", snapshot.DelayP99Ms, interval, recordTime),
	}
	return
}

func (view *ServerView) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	snapshot := view.Snapshot()
	updates, dropped, _ := view.Counters()
	recordTime := time.Now()
	ns := view.Namespace

	collection = []metrics.Metric{
		gauge(ns, "server_fps", "Sender reported frame rate", "fps", snapshot.FPS, interval, recordTime),
		gauge(ns, "server_bitrate_kbps", "Sender reported bitrate", "kbps", snapshot.BitrateKbps, interval, recordTime),
		gauge(ns, "server_bytes_sent", "Sender reported cumulative bytes", "bytes", snapshot.BytesSent, interval, recordTime),
		gauge(ns, "server_packets_sent", "Sender reported cumulative packets", "count", snapshot.PacketsSent, interval, recordTime),
		gauge(ns, "snapshots_merged_total", "Sender snapshots applied", "count", updates, interval, recordTime),
		gauge(ns, "snapshots_dropped_total", "Side-channel payloads that failed to decode", "count", dropped, interval, recordTime),
	}
	return
}
