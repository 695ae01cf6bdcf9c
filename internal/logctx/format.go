package logctx

import (
	"fmt"
	"framelink/internal/global"
	"strings"
	"time"
)

// Fixed width layout, nanoseconds are never trimmed
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Stringify full event
func (event Event) Format() (text string) {
	text = event.format(false)
	return
}

func (event Event) format(color bool) (text string) {
	// Only print parts that are present
	var parts []string
	if !event.Timestamp.IsZero() {
		parts = append(parts, fmt.Sprintf("[%s]", padTimestamp(event.Timestamp)))
	}

	if len(event.Tags) > 0 {
		parts = append(parts, "["+strings.Join(event.Tags, "/")+"]")
	}

	if event.Severity != "" {
		severity := event.Severity
		if color {
			severity = colorize(severity)
		}
		parts = append(parts, fmt.Sprintf("[%s]", severity))
	}

	if event.Message != "" {
		parts = append(parts, event.Message)
	}

	// No newline, message creator determines newlines
	text = strings.Join(parts, " ")
	return
}

func colorize(severity string) (colored string) {
	switch severity {
	case global.ErrorLog:
		colored = colorRed + severity + colorReset
	case global.WarnLog:
		colored = colorYellow + severity + colorReset
	case global.InfoLog:
		colored = colorCyan + severity + colorReset
	default:
		colored = severity
	}
	return
}

// Ensures fixed length strings for timestamps
func padTimestamp(timestamp time.Time) (formatted string) {
	if timestamp.Nanosecond() == 0 {
		formatted = timestamp.Format(time.RFC3339)
		return
	}
	formatted = timestamp.Format(timestampLayout)
	return
}
