package logctx

import (
	"framelink/internal/global"
	"time"
)

// Queues an event for the watcher. Errors are kept at every level.
func (logger *Logger) enqueue(eventLevel int, eventSeverity string, tags []string, fullMessage string) {
	if eventSeverity != global.ErrorLog && !logger.Enabled(eventLevel) {
		return
	}

	event := Event{
		Timestamp: time.Now(),
		Tags:      tags,
		Severity:  eventSeverity,
		Message:   fullMessage,
	}

	logger.mu.Lock()
	logger.pending = append(logger.pending, event)
	logger.mu.Unlock()
	logger.cond.Signal()
}

// Reports whether events at this verbosity are recorded
func (logger *Logger) Enabled(eventLevel int) (enabled bool) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	enabled = eventLevel <= logger.Verbosity
	return
}
