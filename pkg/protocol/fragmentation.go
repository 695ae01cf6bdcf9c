package protocol

import "fmt"

// Applies the fragment payload cap bounds
func clampFragmentPayload(maxFragmentPayload int) (limit int) {
	limit = maxFragmentPayload
	if limit < MinFragmentPayload {
		limit = MinFragmentPayload
	}
	if limit > MaxPayloadLen {
		limit = MaxPayloadLen
	}
	return
}

// Number of fragments a frame of the given length splits into (minimum 1)
func FragmentCount(length int, maxFragmentPayload int) (count int) {
	limit := clampFragmentPayload(maxFragmentPayload)

	count = (length + limit - 1) / limit
	if count < 1 {
		count = 1
	}
	return
}

// Splits one compressed frame into wire packets of at most maxFragmentPayload payload bytes each.
// Every fragment carries the same timestamp (zero means now, captured once).
func Fragment(frame []byte, frameID uint32, maxFragmentPayload int, codec, flags uint8, timestampMs uint64) (packets [][]byte, err error) {
	limit := clampFragmentPayload(maxFragmentPayload)

	total := FragmentCount(len(frame), limit)
	if total > MaxFragments {
		err = fmt.Errorf("%w: frame of %d bytes needs %d fragments, maximum is %d", ErrInvalidPayload, len(frame), total, MaxFragments)
		return
	}

	if timestampMs == 0 {
		timestampMs = NowMs()
	}

	packets = make([][]byte, 0, total)
	for index := 0; index < total; index++ {
		start := index * limit
		end := start + limit
		if end > len(frame) {
			end = len(frame)
		}

		var packet []byte
		packet, err = Encode(frameID, uint16(index), uint16(total), frame[start:end], codec, flags, timestampMs)
		if err != nil {
			err = fmt.Errorf("failed to encode fragment %d/%d of frame %d: %w", index, total, frameID, err)
			packets = nil
			return
		}
		packets = append(packets, packet)
	}
	return
}
