package logctx

import (
	"context"
	"framelink/internal/global"
	"strings"
	"testing"
	"time"
)

// Empties and returns the queued events
func drain(logger *Logger) (events []Event) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	events = logger.pending
	logger.pending = nil
	return
}

func TestLogEventFiltering(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	ctx := New(context.Background(), global.NSTest, global.VerbosityStandard, done)
	ctx = AppendCtxTag(ctx, global.NSVideo)
	logger := GetLogger(ctx)
	if logger == nil {
		t.Fatalf("expected logger in context")
	}

	tests := []struct {
		name          string
		printLevel    int
		eventLevel    int
		severity      string
		message       string
		vars          []any
		expectLogged  bool
		expectMessage string
	}{
		{
			name:          "standard event at standard level",
			printLevel:    global.VerbosityStandard,
			eventLevel:    global.VerbosityStandard,
			severity:      global.InfoLog,
			message:       "Listeners started\n",
			expectLogged:  true,
			expectMessage: "Listeners started\n",
		},
		{
			name:         "data event at progress level",
			printLevel:   global.VerbosityProgress,
			eventLevel:   global.VerbosityData,
			severity:     global.WarnLog,
			message:      "Dropped malformed packet from %s\n",
			vars:         []any{"127.0.0.1:9"},
			expectLogged: false,
		},
		{
			name:          "errors ignore the level",
			printLevel:    global.VerbosityNone,
			eventLevel:    global.VerbosityDebug,
			severity:      global.ErrorLog,
			message:       "panic in video listener: %v\n",
			vars:          []any{"boom"},
			expectLogged:  true,
			expectMessage: "panic in video listener: boom\n",
		},
		{
			name:          "vars without verbs are not appended",
			printLevel:    global.VerbosityData,
			eventLevel:    global.VerbosityProgress,
			severity:      global.InfoLog,
			message:       "frame complete",
			vars:          []any{12},
			expectLogged:  true,
			expectMessage: "frame complete",
		},
		{
			name:          "verbs without vars are kept",
			printLevel:    global.VerbosityData,
			eventLevel:    global.VerbosityProgress,
			severity:      global.InfoLog,
			message:       "loss at 5%",
			expectLogged:  true,
			expectMessage: "loss at 5%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drain(logger)
			SetLogLevel(ctx, tt.printLevel)

			LogEvent(ctx, tt.eventLevel, tt.severity, tt.message, tt.vars...)

			events := drain(logger)
			if !tt.expectLogged {
				if len(events) != 0 {
					t.Fatalf("expected event dropped, got %+v", events)
				}
				return
			}
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			event := events[0]
			if event.Message != tt.expectMessage {
				t.Fatalf("expected message %q, got %q", tt.expectMessage, event.Message)
			}
			if event.Severity != tt.severity {
				t.Fatalf("expected severity %s, got %s", tt.severity, event.Severity)
			}
			if strings.Join(event.Tags, "/") != global.NSTest+"/"+global.NSVideo {
				t.Fatalf("unexpected tags %v", event.Tags)
			}
			if time.Since(event.Timestamp) > time.Second {
				t.Fatalf("unexpected timestamp %v", event.Timestamp)
			}
		})
	}
}

func TestLogEventWithoutLogger(t *testing.T) {
	// Must not panic
	LogEvent(context.Background(), global.VerbosityStandard, global.ErrorLog, "no logger %d", 1)
}

func TestEnabled(t *testing.T) {
	logger := NewLogger(global.NSTest, global.VerbosityProgress, nil)

	for level := global.VerbosityNone; level <= global.VerbosityDebug; level++ {
		expect := level <= global.VerbosityProgress
		if got := logger.Enabled(level); got != expect {
			t.Fatalf("level %d: expected enabled=%v, got %v", level, expect, got)
		}
	}
}

func TestGetFormattedLogLinesOrdering(t *testing.T) {
	logger := NewLogger(global.NSTest, global.VerbosityDebug, nil)

	start := time.Now()
	logger.pending = []Event{
		{Timestamp: start.Add(2 * time.Second), Severity: global.InfoLog, Message: "frame 2"},
		{Severity: global.InfoLog, Message: "untimed"},
		{Timestamp: start, Severity: global.InfoLog, Message: "frame 0"},
		{Timestamp: start.Add(time.Second), Severity: global.InfoLog, Message: "frame 1\n"},
	}

	lines := logger.GetFormattedLogLines()
	expect := []string{"frame 0", "frame 1", "frame 2", "untimed"}
	if len(lines) != len(expect) {
		t.Fatalf("expected %d lines, got %d", len(expect), len(lines))
	}
	for i, message := range expect {
		if !strings.Contains(lines[i], message) {
			t.Fatalf("line %d: expected %q, got %q", i, message, lines[i])
		}
		if !strings.HasSuffix(lines[i], "\n") || strings.HasSuffix(lines[i], "\n\n") {
			t.Fatalf("line %d should end with exactly one newline: %q", i, lines[i])
		}
	}

	if rest := logger.GetFormattedLogLines(); len(rest) != 0 {
		t.Fatalf("expected queue drained, got %d lines", len(rest))
	}
}
