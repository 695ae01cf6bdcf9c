package metrics

import (
	"sync"
	"time"
)

// Anything able to report its metrics for an interval
type Collector interface {
	CollectMetrics(interval time.Duration) []Metric
}

// Time-sliced storage, one slice per collection interval
type Registry struct {
	mu      sync.RWMutex
	metrics map[time.Time]map[string]map[string]Metric // key0=timestamp, key1=namespace, key2=name
}

type MetricType string

const (
	Counter MetricType = "counter" // always increasing
	Gauge   MetricType = "gauge"   // can go up/down
	Summary MetricType = "summary" // avg/min/max
)

// Aggregation kinds for Aggregate
const (
	AggSum string = "sum"
	AggMin string = "min"
	AggMax string = "max"
	AggAvg string = "avg"
)

// Container for a metric and associated data
type Metric struct {
	Name        string // e.g. frames_completed, delay_p95
	Description string
	Namespace   []string // e.g. "Receiver/Video/Reassembly"
	Value       MetricValue
	Type        MetricType
	Timestamp   time.Time // time when the metric was recorded
}

// Specific value of a metric
type MetricValue struct {
	Raw      interface{}   // uint64, int64, float64
	Unit     string        // e.g., "ms", "bytes", "count"
	Interval time.Duration // measurement window
}

// JSON version
type JMetric struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Namespace   string       `json:"namespace"`
	Value       JMetricValue `json:"value"`
	Type        string       `json:"type"`
	Timestamp   string       `json:"timestamp"`
}

// Specific value of a metric
type JMetricValue struct {
	Raw      string `json:"raw"`
	Unit     string `json:"unit"`
	Interval string `json:"interval"`
}
