package protocol

// Fixed-size wire header. Field order and widths are the wire layout.
type Header struct {
	Version        uint8
	Flags          uint8
	Codec          uint8
	Reserved       uint8
	FrameID        uint32
	FragmentIndex  uint16
	TotalFragments uint16
	TimestampMs    uint64
	PayloadLength  uint16
	Checksum       uint16
}

// Sender-side running statistics, as carried over the metrics side-channel
type SenderSnapshot struct {
	FPS         int64 `json:"server_fps" msgpack:"server_fps"`
	BitrateKbps int64 `json:"server_bitrate_kbps" msgpack:"server_bitrate_kbps"`
	BytesSent   int64 `json:"server_bytes_sent" msgpack:"server_bytes_sent"`
	PacketsSent int64 `json:"server_packets_sent" msgpack:"server_packets_sent"`
	TimestampMs int64 `json:"timestamp_ms" msgpack:"timestamp_ms"`
}

// Decoded side-channel record. Nil fields were absent or unusable.
type SnapshotUpdate struct {
	FPS         *int64
	BitrateKbps *int64
	BytesSent   *int64
	PacketsSent *int64
	TimestampMs *int64
}
