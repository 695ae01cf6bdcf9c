// Beats (lumberjack v2) export of link metric snapshots
package beats

import (
	"context"
	"fmt"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"framelink/internal/metrics"
	"framelink/internal/queue/ring"
	"os"
	"runtime/debug"
	"time"

	lumberjack "github.com/elastic/go-lumber/client/v2"
)

const (
	dialTimeout  = 3 * time.Second
	retryBackoff = 2 * time.Second
)

var dial = func(endpoint string) (client sink, err error) {
	client, err = lumberjack.SyncDial(endpoint,
		lumberjack.CompressionLevel(0),
		lumberjack.Timeout(dialTimeout))
	return
}

// Creates new exporter. Returns nil nil if no endpoint.
func NewExporter(namespace []string, endpoint, session string) (exporter *Exporter, err error) {
	if endpoint == "" {
		return
	}

	ns := append(append([]string(nil), namespace...), global.NSoBeats)
	queue, err := ring.New[Event](ns, global.ExporterQueueCapacity)
	if err != nil {
		err = fmt.Errorf("failed creating beats queue: %w", err)
		return
	}

	exporter = &Exporter{
		Namespace: ns,
		endpoint:  endpoint,
		session:   session,
		queue:     queue,
	}
	return
}

// Queues an event, false when the queue is full
func (exporter *Exporter) Enqueue(event Event) (queued bool) {
	if exporter == nil {
		return
	}
	queued = exporter.queue.Push(event)
	return
}

// Gatherer hook queueing one snapshot event per collection interval
func (exporter *Exporter) SnapshotHook(snapshot func() map[string]interface{}) (hook metrics.IntervalHook) {
	hook = func(ctx context.Context, timeSlice time.Time, _ []metrics.Metric) {
		if exporter == nil {
			return
		}
		if !exporter.Enqueue(Event{Timestamp: timeSlice, Fields: snapshot()}) {
			logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
				"beats export queue full, skipped metric snapshot\n")
		}
	}
	return
}

// Sends queued events until ctx is done
func (exporter *Exporter) Run(ctx context.Context) {
	if exporter == nil {
		return
	}
	ctx = logctx.AppendCtxTag(ctx, global.NSoBeats)

	for {
		event, ok := exporter.queue.Pop(ctx)
		if !ok {
			return
		}
		exporter.deliver(ctx, event)
	}
}

func (exporter *Exporter) deliver(ctx context.Context, event Event) {
	defer func() {
		if fatalError := recover(); fatalError != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in beats exporter: %v\n%s", fatalError, debug.Stack())
		}
	}()

	if exporter.sink == nil {
		client, err := dial(exporter.endpoint)
		if err != nil {
			exporter.Metrics.Failed.Add(1)
			logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
				"failed connection to beats server %s: %v\n", exporter.endpoint, err)
			exporter.pause(ctx)
			return
		}
		exporter.sink = client
		exporter.Metrics.Reconnects.Add(1)
	}

	_, err := exporter.sink.Send([]interface{}{exporter.fields(event)})
	if err != nil {
		exporter.Metrics.Failed.Add(1)
		logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
			"failed sending metrics to beats server: %v\n", err)
		exporter.sink.Close()
		exporter.sink = nil
		return
	}
	exporter.Metrics.Sent.Add(1)
}

func (exporter *Exporter) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(retryBackoff):
	}
}

// Wraps the event in ECS-style envelope fields
func (exporter *Exporter) fields(event Event) (fields map[string]interface{}) {
	fields = map[string]interface{}{
		"@timestamp": event.Timestamp,
		"message":    "framelink link metrics",
		"host": map[string]interface{}{
			"name":     global.Hostname,
			"hostname": global.Hostname,
		},
		"agent": map[string]interface{}{
			"program": global.ProgBaseName,
			"version": global.ProgVersion,
			"type":    global.ProgBaseName,
			"pid":     os.Getpid(),
			"session": exporter.session,
		},
		"framelink": event.Fields,
	}
	return
}

// Drains what is already queued (bounded by timeout) and closes the connection
func (exporter *Exporter) Shutdown(ctx context.Context, timeout time.Duration) (err error) {
	if exporter == nil {
		return
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		event, ok := exporter.queue.TryPop()
		if !ok {
			break
		}
		exporter.deliver(ctx, event)
	}
	if exporter.sink != nil {
		err = exporter.sink.Close()
		exporter.sink = nil
	}
	return
}
