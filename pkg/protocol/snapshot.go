package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// Serializes a sender snapshot for the metrics side-channel
func EncodeSnapshot(snapshot SenderSnapshot, encoding string) (data []byte, err error) {
	switch encoding {
	case EncodingJSON, "":
		data, err = json.Marshal(snapshot)
	case EncodingMsgpack:
		data, err = msgpack.Marshal(snapshot)
	default:
		err = fmt.Errorf("unknown snapshot encoding '%s'", encoding)
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to serialize snapshot: %v", err)
		return
	}
	return
}

// Decodes one side-channel record. JSON objects are detected by their leading brace,
// anything else is treated as a msgpack map. Missing or non-numeric keys are left unset.
func DecodeSnapshot(data []byte) (update SnapshotUpdate, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		err = fmt.Errorf("%w: empty record", ErrInvalidSnapshot)
		return
	}

	fields := make(map[string]any)
	if trimmed[0] == '{' {
		decoder := json.NewDecoder(bytes.NewReader(trimmed))
		decoder.UseNumber()
		if err = decoder.Decode(&fields); err != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
			return
		}
	} else {
		if err = msgpack.Unmarshal(trimmed, &fields); err != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
			return
		}
	}

	update.FPS = lookupInt(fields, KeyServerFPS)
	update.BitrateKbps = lookupInt(fields, KeyServerBitrate)
	update.BytesSent = lookupInt(fields, KeyServerBytes)
	update.PacketsSent = lookupInt(fields, KeyServerPackets)
	update.TimestampMs = lookupInt(fields, KeyTimestamp)
	return
}

// Reports whether the update carries no usable field
func (update SnapshotUpdate) Empty() (empty bool) {
	empty = update.FPS == nil &&
		update.BitrateKbps == nil &&
		update.BytesSent == nil &&
		update.PacketsSent == nil &&
		update.TimestampMs == nil
	return
}

func lookupInt(fields map[string]any, key string) (value *int64) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	number, ok := asInt64(raw)
	if !ok {
		return
	}
	value = &number
	return
}

// Numeric coercion across JSON and msgpack decoded types. Out of range values saturate.
func asInt64(raw any) (number int64, ok bool) {
	switch typed := raw.(type) {
	case json.Number:
		if number, err := typed.Int64(); err == nil {
			return number, true
		}
		float, err := typed.Float64()
		if err != nil {
			return
		}
		number, ok = asInt64(float)
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return
		}
		ok = true
		switch {
		case typed >= math.MaxInt64:
			number = math.MaxInt64
		case typed <= math.MinInt64:
			number = math.MinInt64
		default:
			number = int64(typed)
		}
	case float32:
		number, ok = asInt64(float64(typed))
	case int:
		number, ok = int64(typed), true
	case int8:
		number, ok = int64(typed), true
	case int16:
		number, ok = int64(typed), true
	case int32:
		number, ok = int64(typed), true
	case int64:
		number, ok = typed, true
	case uint:
		number, ok = asInt64(uint64(typed))
	case uint8:
		number, ok = int64(typed), true
	case uint16:
		number, ok = int64(typed), true
	case uint32:
		number, ok = int64(typed), true
	case uint64:
		number, ok = math.MaxInt64, true
		if typed <= math.MaxInt64 {
			number = int64(typed)
		}
	}
	return
}
