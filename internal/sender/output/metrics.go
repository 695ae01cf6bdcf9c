package output

import (
	"framelink/internal/metrics"
	"time"
)

func (transmitter *Transmitter) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	// Read and clear
	packets := transmitter.Metrics.Packets.Swap(0)
	bytes := transmitter.Metrics.Bytes.Swap(0)
	maxPacket := transmitter.Metrics.MaxPacketBytes.Swap(0)
	sendErrors := transmitter.Metrics.SendErrors.Swap(0)
	snapshots := transmitter.Metrics.Snapshots.Swap(0)
	snapshotErrors := transmitter.Metrics.SnapshotErrors.Swap(0)
	link := transmitter.Stats.Snapshot()

	// Record read time
	recordTime := time.Now()

	var avgPacket uint64
	if packets > 0 {
		avgPacket = bytes / packets
	}

	entries := []struct {
		name, description, unit string
		kind                    metrics.MetricType
		value                   interface{}
	}{
		{"total_sent_packets", "Total video packets sent in the interval", "count", metrics.Gauge, packets},
		{"sum_packet_size", "Total size of all video packets sent in the interval", "bytes", metrics.Gauge, bytes},
		{"maximum_packet_size", "Maximum (seen) size across video packets sent in the interval", "bytes", metrics.Gauge, maxPacket},
		{"average_packet_size", "Average size across video packets sent in the interval", "bytes", metrics.Summary, avgPacket},
		{"send_errors", "Video packet writes that failed in the interval", "count", metrics.Gauge, sendErrors},
		{"snapshots_sent", "Metrics snapshots sent on the side channel in the interval", "count", metrics.Gauge, snapshots},
		{"snapshot_errors", "Metrics snapshots that failed to encode or send in the interval", "count", metrics.Gauge, snapshotErrors},
		{"server_fps", "Frames produced per second since start", "fps", metrics.Gauge, link.FPS},
		{"server_bitrate_kbps", "Video bitrate over the last second", "kbps", metrics.Gauge, link.BitrateKbps},
	}

	for _, entry := range entries {
		collection = append(collection, metrics.Metric{
			Name:        entry.name,
			Description: entry.description,
			Namespace:   transmitter.Namespace,
			Value: metrics.MetricValue{
				Raw:      entry.value,
				Unit:     entry.unit,
				Interval: interval,
			},
			Type:      entry.kind,
			Timestamp: recordTime,
		})
	}
	return
}
