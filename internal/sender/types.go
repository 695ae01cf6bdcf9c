package sender

import (
	"context"
	"framelink/internal/config"
	"framelink/internal/lifecycle"
	"framelink/internal/metrics"
	"framelink/internal/sender/output"
	"framelink/internal/sender/source"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	File       config.File
	ConfigPath string // re-read on reload, empty disables reload

	// Destination
	ClientIP    string
	VideoPort   int
	MetricsPort int

	Source     source.Config
	MaxPayload int     // fragment payload cap
	FPSLimit   float64 // 0 = unlimited

	MetricsEncoding string
	InhibitSleep    bool
	PIDFile         string

	// Metrics
	MetricQueryServerPort    int // 0 disables the query server
	MetricCollectionInterval time.Duration
	MetricMaxAge             time.Duration

	Override config.Override // reapplied to every reloaded file, nil for none
}

// Settings the loop picks up without a restart
type liveSettings struct {
	FPSLimit   float64
	MaxPayload int
}

type Daemon struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	wg           sync.WaitGroup
	shutdownOnce sync.Once

	mu   sync.Mutex // guards cfg and live
	live liveSettings

	source           source.Source
	Transmitter      *output.Transmitter
	metricsCollector *metrics.Gatherer
	MetricServer     *http.Server
	inhibitor        *lifecycle.Inhibitor

	frameID uint32
	Metrics MetricStorage
}

type MetricStorage struct {
	FramesSent    atomic.Uint64
	FramesDropped atomic.Uint64 // failed to fragment
	SourceErrors  atomic.Uint64
}
