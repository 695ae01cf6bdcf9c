package receiver

import (
	"context"
	"framelink/internal/config"
	"framelink/internal/externalio/beats"
	"framelink/internal/externalio/capture"
	"framelink/internal/metrics"
	"framelink/internal/receiver/latest"
	"framelink/internal/receiver/listener"
	"framelink/internal/receiver/reassembly"
	"framelink/internal/receiver/stats"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	File       config.File // source file content, served by /config
	ConfigPath string      // where /config saves go, empty disables saving

	// Network settings
	ListenIP      string
	VideoPort     int
	MetricsPort   int
	ReceiveBuffer int
	KernelFilter  bool

	Reassembly reassembly.Config

	// HTTP surface
	WebIP   string
	WebPort int

	// Outputs
	BeatsEndpoint string
	CaptureFile   string

	// Metrics
	MetricCollectionInterval time.Duration
	MetricMaxAge             time.Duration

	AutoStartListeners bool
	PIDFile            string

	Override config.Override // reapplied to every reloaded file, nil for none
}

// Running pair of receive tasks
type linkSet struct {
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	video        *listener.Video
	side         *listener.Metrics
	videoRunning atomic.Bool
}

type Daemon struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	wg           sync.WaitGroup
	shutdownOnce sync.Once

	mu   sync.Mutex // guards cfg and link
	link *linkSet

	Receiver *stats.Receiver
	Server   *stats.ServerView
	Latest   *latest.Slot

	capture          *capture.Writer
	exporter         *beats.Exporter
	metricsCollector *metrics.Gatherer
	HTTPServer       *http.Server
}
