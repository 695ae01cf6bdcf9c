// Central logging system. Buffers messages and writes to configured outputs
package logctx

import (
	"context"
	"fmt"
	"framelink/internal/global"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger Constructor
func NewLogger(id string, logLevel int, done <-chan struct{}) (logger *Logger) {
	logger = &Logger{
		ID:        id,
		Started:   time.Now(),
		Done:      done,
		Verbosity: logLevel,
		watchers:  &sync.WaitGroup{},
	}
	logger.cond = sync.NewCond(&logger.mu)
	return
}

// Creates a new logger and returns a context carrying it, tagged with the given namespace
func New(ctx context.Context, namespace string, logLevel int, done <-chan struct{}) (newCtx context.Context) {
	logger := NewLogger(namespace, logLevel, done)
	newCtx = WithLogger(ctx, logger)
	newCtx = AppendCtxTag(newCtx, namespace)
	return
}

// Attach the logger to context
func WithLogger(ctx context.Context, logger *Logger) (ctxLogger context.Context) {
	ctxLogger = context.WithValue(ctx, global.LoggerKey, logger)
	return
}

// Change the loggers level
func SetLogLevel(ctx context.Context, newLevel int) {
	logger := GetLogger(ctx)
	if logger != nil {
		logger.mu.Lock()
		defer logger.mu.Unlock()
		logger.Verbosity = newLevel
	}
}

// Extracts Logger from context or returns nil
func GetLogger(ctx context.Context) (logger *Logger) {
	logger, ok := ctx.Value(global.LoggerKey).(*Logger)
	if ok {
		return
	}
	logger = nil
	return
}

// Entry for logging events
func LogEvent(ctx context.Context, eventLevel int, severity string, message string, vars ...any) {
	logger := GetLogger(ctx)
	if logger == nil {
		return
	}
	// Skip formatting for events the level would discard
	if severity != global.ErrorLog && !logger.Enabled(eventLevel) {
		return
	}
	tags := GetTagList(ctx)

	var newMsg string
	if len(vars) == 0 || !strings.Contains(message, "%") {
		// Avoiding 'extra' print to log entries
		newMsg = message
	} else {
		newMsg = fmt.Sprintf(message, vars...)
	}
	logger.enqueue(eventLevel, severity, tags, newMsg)
}

// Drains the queue and returns every pending event formatted, oldest first.
// Events without a timestamp sort last.
func (logger *Logger) GetFormattedLogLines() (lines []string) {
	logger.mu.Lock()
	events := logger.pending
	logger.pending = make([]Event, 0)
	logger.mu.Unlock()

	sort.SliceStable(events, func(i, j int) bool {
		left, right := events[i].Timestamp, events[j].Timestamp
		if left.IsZero() != right.IsZero() {
			return right.IsZero()
		}
		return left.Before(right)
	})

	for _, event := range events {
		line := event.Format()
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		lines = append(lines, line)
	}
	return
}
