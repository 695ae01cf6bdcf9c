package server

import (
	"context"
	"framelink/internal/config"
	"framelink/internal/metrics"
	"framelink/internal/receiver/stats"
	"framelink/pkg/protocol"
	"time"
)

type httpLogWriter struct {
	ctx context.Context
}

type Jerror struct {
	Msg string `json:"error"`
}

// Generic OK reply
type Jok struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type DataSearcher func(name string, namespacePrefix []string, start, end time.Time) []metrics.Metric
type Discoverer func(name, description string, namespacePrefix []string, unit string, metricType metrics.MetricType) []metrics.Metric
type AggSearcher func(aggregation, name string, namespacePrefix []string, start, end time.Time) (metrics.Metric, error)

// Metric registry query hooks
type Queries struct {
	Search    DataSearcher
	Discover  Discoverer
	Aggregate AggSearcher
}

// Most recent decoded frame
type FrameSource interface {
	Load() (frame []byte, generation uint64, ok bool)
	WaitNewer(ctx context.Context, after uint64) (frame []byte, generation uint64, err error)
}

// Receiver daemon operations driven over HTTP
type Controller interface {
	Metrics() (server protocol.SenderSnapshot, client stats.ReceiverSnapshot)
	ListenersRunning() bool
	StartListeners() error
	StopListeners() error
	RestartListeners() error
	Config() config.File
	ApplyConfig(file config.File) error
	RequestShutdown() (terminated map[string]int)
}

type metricsReply struct {
	Client stats.ReceiverSnapshot  `json:"client"`
	Server protocol.SenderSnapshot `json:"server"`
}

type healthReply struct {
	OK               bool            `json:"ok"`
	ReceiversRunning bool            `json:"receivers_running"`
	Session          string          `json:"session"`
	ReceiverConfig   config.Receiver `json:"receiver_config"`
}

type shutdownReply struct {
	OK         bool           `json:"ok"`
	Message    string         `json:"message"`
	Terminated map[string]int `json:"terminated,omitempty"`
}
