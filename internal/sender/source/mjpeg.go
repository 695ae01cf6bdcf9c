package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Largest frame kept while searching for the end marker
const maxMJPEGFrame int = 16 * 1024 * 1024

// Opens path as an MJPEG stream, "-" reads stdin
func NewMJPEG(namespace []string, path string) (new *MJPEG, err error) {
	new = &MJPEG{
		Namespace: namespace,
		path:      path,
	}
	if path == "-" {
		new.reader = bufio.NewReaderSize(os.Stdin, 1<<20)
		return
	}

	file, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("failed to open mjpeg stream: %w", err)
		new = nil
		return
	}
	new.reader = bufio.NewReaderSize(file, 1<<20)
	new.file = file
	return
}

// Returns the next SOI..EOI span. Files loop back to the start at EOF.
func (stream *MJPEG) Next(ctx context.Context) (frame []byte, err error) {
	err = ctx.Err()
	if err != nil {
		return
	}

	frame, err = readJPEG(stream.reader)
	if errors.Is(err, io.EOF) && stream.file != nil {
		_, err = stream.file.Seek(0, io.SeekStart)
		if err != nil {
			err = fmt.Errorf("failed to rewind mjpeg stream: %w", err)
			stream.Metrics.record(nil, err)
			return
		}
		stream.reader.Reset(stream.file)
		frame, err = readJPEG(stream.reader)
	}
	if errors.Is(err, io.EOF) && len(frame) == 0 {
		err = fmt.Errorf("%w: end of mjpeg stream %s", ErrNoFrames, stream.path)
	}
	stream.Metrics.record(frame, err)
	return
}

// Scans to a start-of-image marker and collects through the end-of-image marker
func readJPEG(reader *bufio.Reader) (frame []byte, err error) {
	var prev byte
	var started bool

	for {
		var current byte
		current, err = reader.ReadByte()
		if err != nil {
			frame = nil
			return
		}

		if !started {
			if prev == 0xFF && current == 0xD8 {
				started = true
				frame = append(frame[:0], 0xFF, 0xD8)
			}
			prev = current
			continue
		}

		frame = append(frame, current)
		if prev == 0xFF && current == 0xD9 {
			return
		}
		prev = current

		if len(frame) > maxMJPEGFrame {
			err = fmt.Errorf("%w: no end marker within %d bytes", ErrFrameTooLarge, maxMJPEGFrame)
			frame = nil
			return
		}
	}
}

func (stream *MJPEG) Close() (err error) {
	if stream.file != nil {
		err = stream.file.Close()
	}
	return
}
