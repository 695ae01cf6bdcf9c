package server

import (
	"errors"
	"framelink/internal/config"
	"framelink/internal/metrics"
	"framelink/internal/receiver/stats"
	"framelink/pkg/protocol"
	"sync"
	"time"
)

func mockDiscoverer(results []metrics.Metric) Discoverer {
	return func(name, desc string, ns []string, unit string, mt metrics.MetricType) []metrics.Metric {
		return results
	}
}

func mockDataSearcher(results []metrics.Metric) DataSearcher {
	return func(name string, ns []string, start, end time.Time) []metrics.Metric {
		return results
	}
}

func mockAggSearcher(result metrics.Metric, err error) AggSearcher {
	return func(agg, name string, ns []string, start, end time.Time) (metrics.Metric, error) {
		return result, err
	}
}

func mockQueries() Queries {
	return Queries{
		Search:    mockDataSearcher(nil),
		Discover:  mockDiscoverer(nil),
		Aggregate: mockAggSearcher(metrics.Metric{}, nil),
	}
}

type mockController struct {
	mu         sync.Mutex
	running    bool
	actions    []string
	file       config.File
	applied    int
	shutdowns  int
	failAction bool
	sender     protocol.SenderSnapshot
	client     stats.ReceiverSnapshot
}

func newMockController() *mockController {
	return &mockController{
		running: true,
		file:    config.Defaults(),
		client:  stats.ReceiverSnapshot{LastFrameID: -1},
	}
}

func (m *mockController) Metrics() (protocol.SenderSnapshot, stats.ReceiverSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sender, m.client
}

func (m *mockController) ListenersRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockController) record(action string, running bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAction {
		return errors.New("bind failure")
	}
	m.actions = append(m.actions, action)
	m.running = running
	return nil
}

func (m *mockController) StartListeners() error   { return m.record("start", true) }
func (m *mockController) StopListeners() error    { return m.record("stop", false) }
func (m *mockController) RestartListeners() error { return m.record("restart", true) }

func (m *mockController) Config() config.File {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file
}

func (m *mockController) ApplyConfig(file config.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.file = file
	m.applied++
	return nil
}

func (m *mockController) RequestShutdown() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdowns++
	return map[string]int{"sender": 4242}
}
