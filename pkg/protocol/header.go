// Wire codec for video fragments
package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Replaced in tests
var timeNow = time.Now

func wrapMalformed(text string) (err error) {
	err = fmt.Errorf("%w: %s", ErrMalformedPacket, text)
	return
}

// Additive checksum over payload bytes, modulo 65535.
// Detects accidental corruption only, trivially forgeable.
func Checksum(payload []byte) (sum uint16) {
	var total uint64
	for _, b := range payload {
		total += uint64(b)
	}
	sum = uint16(total % checksumModulus)
	return
}

// Current wall-clock time in epoch milliseconds
func NowMs() (ms uint64) {
	ms = uint64(timeNow().UnixMilli())
	return
}

// Builds one wire packet (header followed by payload).
// A zero timestamp is replaced with the current time.
func Encode(frameID uint32, fragmentIndex, totalFragments uint16, payload []byte, codec, flags uint8, timestampMs uint64) (packet []byte, err error) {
	if len(payload) > MaxPayloadLen {
		err = fmt.Errorf("%w: payload length %d exceeds maximum %d", ErrInvalidPayload, len(payload), MaxPayloadLen)
		return
	}
	if totalFragments == 0 {
		err = fmt.Errorf("%w: total fragments must be at least 1", ErrInvalidPayload)
		return
	}
	if fragmentIndex >= totalFragments {
		err = fmt.Errorf("%w: fragment index %d out of range for %d fragments", ErrInvalidPayload, fragmentIndex, totalFragments)
		return
	}

	if timestampMs == 0 {
		timestampMs = NowMs()
	}

	header := Header{
		Version:        Version,
		Flags:          flags,
		Codec:          codec,
		Reserved:       0,
		FrameID:        frameID,
		FragmentIndex:  fragmentIndex,
		TotalFragments: totalFragments,
		TimestampMs:    timestampMs,
		PayloadLength:  uint16(len(payload)),
		Checksum:       Checksum(payload),
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderLen+len(payload)))
	if err = binary.Write(buf, binary.BigEndian, header); err != nil {
		err = fmt.Errorf("failed to serialize header: %v", err)
		return
	}
	buf.Write(payload)

	packet = buf.Bytes()
	return
}

// Parses and validates one wire packet.
// Returned payload aliases the input slice.
func Decode(packet []byte) (header Header, payload []byte, err error) {
	if len(packet) < HeaderLen {
		err = fmt.Errorf("%w: got %d bytes, need at least %d", ErrTruncated, len(packet), HeaderLen)
		return
	}

	err = binary.Read(bytes.NewReader(packet[:HeaderLen]), binary.BigEndian, &header)
	if err != nil {
		err = fmt.Errorf("%w: failed to deserialize header: %v", ErrTruncated, err)
		return
	}

	if header.Version != Version {
		err = fmt.Errorf("%w: got %d, support %d", ErrUnsupportedVersion, header.Version, Version)
		return
	}

	trailing := len(packet) - HeaderLen
	if int(header.PayloadLength) != trailing {
		err = fmt.Errorf("%w: header declares %d bytes, packet carries %d", ErrLengthMismatch, header.PayloadLength, trailing)
		return
	}

	payload = packet[HeaderLen:]

	sum := Checksum(payload)
	if sum != header.Checksum {
		err = fmt.Errorf("%w: header has %d, computed %d", ErrChecksumMismatch, header.Checksum, sum)
		payload = nil
		return
	}

	return
}

// Reports whether err is any decode failure
func IsMalformed(err error) (malformed bool) {
	malformed = errors.Is(err, ErrMalformedPacket)
	return
}
