package protocol

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name           string
		frameID        uint32
		fragmentIndex  uint16
		totalFragments uint16
		payloadLen     int
		codec          uint8
		flags          uint8
		timestampMs    uint64
	}{
		{name: "empty payload", frameID: 0, fragmentIndex: 0, totalFragments: 1, payloadLen: 0, codec: CodecJPEG, timestampMs: 1},
		{name: "single byte", frameID: 7, fragmentIndex: 0, totalFragments: 1, payloadLen: 1, codec: CodecJPEG, timestampMs: 1700000000000},
		{name: "typical fragment", frameID: 1234, fragmentIndex: 3, totalFragments: 8, payloadLen: 1300, codec: CodecJPEG, flags: FlagKeyFrame, timestampMs: 1700000000123},
		{name: "max frame id", frameID: ^uint32(0), fragmentIndex: 65534, totalFragments: 65535, payloadLen: 42, codec: 9, timestampMs: ^uint64(0)},
		{name: "max payload", frameID: 99, fragmentIndex: 0, totalFragments: 1, payloadLen: MaxPayloadLen, codec: CodecJPEG, timestampMs: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := make([]byte, tt.payloadLen)
			for i := range payload {
				payload[i] = byte(i * 31)
			}
			original := append([]byte(nil), payload...)

			packet, err := Encode(tt.frameID, tt.fragmentIndex, tt.totalFragments, payload, tt.codec, tt.flags, tt.timestampMs)
			if err != nil {
				t.Fatalf("unexpected encode error: %v", err)
			}
			if len(packet) != HeaderLen+tt.payloadLen {
				t.Fatalf("expected packet length %d, got %d", HeaderLen+tt.payloadLen, len(packet))
			}

			packetCopy := append([]byte(nil), packet...)

			header, decoded, err := Decode(packet)
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !bytes.Equal(packet, packetCopy) {
				t.Fatalf("decode mutated its input")
			}

			expected := Header{
				Version:        Version,
				Flags:          tt.flags,
				Codec:          tt.codec,
				FrameID:        tt.frameID,
				FragmentIndex:  tt.fragmentIndex,
				TotalFragments: tt.totalFragments,
				TimestampMs:    tt.timestampMs,
				PayloadLength:  uint16(tt.payloadLen),
				Checksum:       Checksum(original),
			}
			if header != expected {
				t.Fatalf("header mismatch:\n got  %+v\n want %+v", header, expected)
			}
			if !bytes.Equal(decoded, original) {
				t.Fatalf("payload mismatch")
			}
		})
	}
}

func TestEncodeDefaultsTimestamp(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = time.Now }()

	packet, err := Encode(1, 0, 1, []byte("abc"), CodecJPEG, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	header, _, err := Decode(packet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if header.TimestampMs != uint64(fixed.UnixMilli()) {
		t.Fatalf("expected timestamp %d, got %d", fixed.UnixMilli(), header.TimestampMs)
	}
}

func TestEncodeInvalid(t *testing.T) {
	tests := []struct {
		name           string
		fragmentIndex  uint16
		totalFragments uint16
		payloadLen     int
	}{
		{name: "oversized payload", fragmentIndex: 0, totalFragments: 1, payloadLen: MaxPayloadLen + 1},
		{name: "zero total", fragmentIndex: 0, totalFragments: 0, payloadLen: 10},
		{name: "index past total", fragmentIndex: 2, totalFragments: 2, payloadLen: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(1, tt.fragmentIndex, tt.totalFragments, make([]byte, tt.payloadLen), CodecJPEG, 0, 1)
			if !errors.Is(err, ErrInvalidPayload) {
				t.Fatalf("expected ErrInvalidPayload, got %v", err)
			}
		})
	}
}

func TestDecodeCorruption(t *testing.T) {
	payload := bytes.Repeat([]byte{0x10, 0x20, 0x30, 0xff}, 100)
	packet, err := Encode(55, 1, 3, payload, CodecJPEG, 0, 1700000000000)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	tests := []struct {
		name      string
		mutate    func(p []byte) []byte
		expectErr error
	}{
		{
			name:      "truncated below header",
			mutate:    func(p []byte) []byte { return p[:HeaderLen-1] },
			expectErr: ErrTruncated,
		},
		{
			name:      "empty input",
			mutate:    func(p []byte) []byte { return nil },
			expectErr: ErrTruncated,
		},
		{
			name:      "unsupported version",
			mutate:    func(p []byte) []byte { p[0] = 2; return p },
			expectErr: ErrUnsupportedVersion,
		},
		{
			name:      "payload shorter than declared",
			mutate:    func(p []byte) []byte { return p[:len(p)-1] },
			expectErr: ErrLengthMismatch,
		},
		{
			name:      "payload longer than declared",
			mutate:    func(p []byte) []byte { return append(p, 0x00) },
			expectErr: ErrLengthMismatch,
		},
		{
			name:      "checksum field altered",
			mutate:    func(p []byte) []byte { p[HeaderLen-1] ^= 0x01; return p },
			expectErr: ErrChecksumMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mutated := tt.mutate(append([]byte(nil), packet...))
			_, _, err := Decode(mutated)
			if !errors.Is(err, tt.expectErr) {
				t.Fatalf("expected %v, got %v", tt.expectErr, err)
			}
			if !IsMalformed(err) {
				t.Fatalf("expected error to be classified as malformed: %v", err)
			}
		})
	}
}

func TestDecodeDetectsEverySingleByteFlip(t *testing.T) {
	payload := make([]byte, 257)
	for i := range payload {
		payload[i] = byte(i)
	}
	packet, err := Encode(3, 0, 1, payload, CodecJPEG, 0, 1)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	for offset := HeaderLen; offset < len(packet); offset++ {
		mutated := append([]byte(nil), packet...)
		mutated[offset] ^= 0x5a

		_, _, err := Decode(mutated)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("flip at offset %d: expected checksum mismatch, got %v", offset, err)
		}
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name   string
		input  []byte
		expect uint16
	}{
		{name: "empty", input: nil, expect: 0},
		{name: "small", input: []byte{1, 2, 3}, expect: 6},
		{name: "exact modulus", input: bytes.Repeat([]byte{0xff}, 257), expect: 0},
		{name: "wraps past modulus", input: bytes.Repeat([]byte{0xff}, 258), expect: 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Checksum(tt.input)
			if got != tt.expect {
				t.Fatalf("expected %d, got %d", tt.expect, got)
			}
		})
	}
}
