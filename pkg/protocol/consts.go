package protocol

import "errors"

const (
	// Only supported wire version
	Version uint8 = 1

	// Header flag bits
	FlagKeyFrame uint8 = 0x01

	// Codec identifiers (informational)
	CodecJPEG uint8 = 1

	// Fixed wire header length in bytes
	HeaderLen int = 24

	// Largest payload a single packet can declare
	MaxPayloadLen int = 65535

	// Largest fragment count a frame can declare
	MaxFragments int = 65535

	// Fragment payload cap floor, avoids pathological tiny fragments
	MinFragmentPayload int = 200

	// Recommended fragment payload cap to stay under common path MTUs
	DefaultFragmentPayload int = 1300

	// Checksum modulus
	checksumModulus uint64 = 65535
)

// Side-channel record encodings
const (
	EncodingJSON    string = "json"
	EncodingMsgpack string = "msgpack"
)

// Side-channel record keys
const (
	KeyServerFPS     string = "server_fps"
	KeyServerBitrate string = "server_bitrate_kbps"
	KeyServerBytes   string = "server_bytes_sent"
	KeyServerPackets string = "server_packets_sent"
	KeyTimestamp     string = "timestamp_ms"
)

var (
	// Parent of every decode failure
	ErrMalformedPacket = errors.New("malformed packet")

	ErrTruncated          = wrapMalformed("truncated packet")
	ErrUnsupportedVersion = wrapMalformed("unsupported protocol version")
	ErrLengthMismatch     = wrapMalformed("payload length mismatch")
	ErrChecksumMismatch   = wrapMalformed("checksum mismatch")

	// Encode side failure (oversized payload or impossible positional fields)
	ErrInvalidPayload = errors.New("invalid payload")

	// Side-channel record could not be decoded
	ErrInvalidSnapshot = errors.New("invalid metrics snapshot")
)
