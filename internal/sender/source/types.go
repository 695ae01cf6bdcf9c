package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"sync/atomic"
)

var (
	ErrNoFrames      = errors.New("no frames available")
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// Produces one compressed frame per call
type Source interface {
	Next(ctx context.Context) (frame []byte, err error)
	Close() (err error)
}

type Config struct {
	Kind    string // synthetic, directory, mjpeg
	Path    string
	Width   int
	Height  int
	Quality int // JPEG quality for generated frames
}

type MetricStorage struct {
	Frames atomic.Uint64
	Bytes  atomic.Uint64
	Errors atomic.Uint64
}

// Moving test pattern, encoded on every call
type Synthetic struct {
	Namespace []string
	width     int
	height    int
	quality   int
	tick      int
	encoded   bytes.Buffer
	Metrics   MetricStorage
}

// Cycles through JPEG files in a directory
type Directory struct {
	Namespace []string
	path      string
	files     []string
	index     int
	Metrics   MetricStorage
}

// Splits a concatenated MJPEG byte stream
type MJPEG struct {
	Namespace []string
	path      string
	reader    *bufio.Reader
	file      *os.File // nil for stdin, which cannot loop
	Metrics   MetricStorage
}
