package beats

import (
	"context"
	"framelink/internal/global"
	"net"
	"testing"
	"time"

	server "github.com/elastic/go-lumber/server/v2"
)

func TestNewExporterNoEndpoint(t *testing.T) {
	exporter, err := NewExporter([]string{global.NSTest}, "", "session")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exporter != nil {
		t.Fatalf("expected nil exporter without endpoint")
	}
	// Nil exporter is inert
	if exporter.Enqueue(Event{}) {
		t.Fatalf("nil exporter should not queue events")
	}
	if exporter.CollectMetrics(time.Second) != nil {
		t.Fatalf("nil exporter should not report metrics")
	}
}

func TestExporterDeliversToBeatsServer(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	srv, err := server.NewWithListener(listener)
	if err != nil {
		t.Fatalf("failed to start beats server: %v", err)
	}
	defer srv.Close()

	exporter, err := NewExporter([]string{global.NSTest}, listener.Addr().String(), "abc-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go exporter.Run(ctx)

	if !exporter.Enqueue(Event{
		Timestamp: time.Now(),
		Fields:    map[string]interface{}{"client": map[string]interface{}{"frames_decoded": 42}},
	}) {
		t.Fatalf("expected event to be queued")
	}

	select {
	case batch := <-srv.ReceiveChan():
		batch.ACK()
		if len(batch.Events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(batch.Events))
		}
		event, ok := batch.Events[0].(map[string]interface{})
		if !ok {
			t.Fatalf("unexpected event type %T", batch.Events[0])
		}
		agent, ok := event["agent"].(map[string]interface{})
		if !ok || agent["session"] != "abc-123" {
			t.Fatalf("expected agent session abc-123, got %v", event["agent"])
		}
		fields, ok := event["framelink"].(map[string]interface{})
		if !ok {
			t.Fatalf("missing framelink fields in %v", event)
		}
		if _, ok := fields["client"]; !ok {
			t.Fatalf("missing client snapshot in %v", fields)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for beats batch")
	}
}

func TestExporterDialFailureCounted(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	address := listener.Addr().String()
	listener.Close()

	exporter, err := NewExporter([]string{global.NSTest}, address, "session")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // skip retry pause
	exporter.deliver(ctx, Event{Timestamp: time.Now()})

	if got := exporter.Metrics.Failed.Load(); got != 1 {
		t.Fatalf("expected 1 failed delivery, got %d", got)
	}
	if exporter.sink != nil {
		t.Fatalf("expected no connection after dial failure")
	}
}

func TestSnapshotHookQueuesEvents(t *testing.T) {
	exporter, err := NewExporter([]string{global.NSTest}, "127.0.0.1:1", "session")
	if err != nil {
		t.Fatalf("unexpected exporter error: %v", err)
	}

	var calls int
	hook := exporter.SnapshotHook(func() map[string]interface{} {
		calls++
		return map[string]interface{}{"client": map[string]int{"frames_decoded": calls}}
	})

	slice := time.Date(2026, 3, 2, 8, 15, 30, 0, time.UTC)
	for i := 0; i < 3; i++ {
		hook(context.Background(), slice.Add(time.Duration(i)*time.Second), nil)
	}
	if exporter.queue.Len() != 3 {
		t.Fatalf("expected 3 queued events, got %d", exporter.queue.Len())
	}

	event, ok := exporter.queue.TryPop()
	if !ok {
		t.Fatalf("expected queued event")
	}
	if !event.Timestamp.Equal(slice) {
		t.Fatalf("expected event stamped with time slice, got %v", event.Timestamp)
	}
	if _, ok := event.Fields["client"]; !ok {
		t.Fatalf("expected snapshot fields in event, got %v", event.Fields)
	}

	var inert *Exporter
	inert.SnapshotHook(func() map[string]interface{} {
		t.Fatalf("nil exporter should not build snapshots")
		return nil
	})(context.Background(), slice, nil)
}
