package beats

import (
	"framelink/internal/queue/ring"
	"sync/atomic"
	"time"
)

// Minimal lumberjack client surface
type sink interface {
	Send(events []interface{}) (int, error)
	Close() error
}

// One metric snapshot event
type Event struct {
	Timestamp time.Time
	Fields    map[string]interface{} // placed under the "framelink" key
}

// Ships metric snapshots to a beats (lumberjack v2) endpoint.
// Events are queued so callers never wait on the network.
type Exporter struct {
	Namespace []string
	endpoint  string
	session   string
	sink      sink
	queue     *ring.Queue[Event]
	Metrics   MetricStorage
}

type MetricStorage struct {
	Sent       atomic.Uint64
	Failed     atomic.Uint64
	Reconnects atomic.Uint64
}
