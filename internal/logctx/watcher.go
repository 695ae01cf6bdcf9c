package logctx

import (
	"fmt"
	"framelink/internal/global"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

const (
	dedupWindow      = 5 * time.Second
	minRepeats       = 10
	suppressCooldown = 1 * time.Minute
)

// Hold main thread exit until logger is finished its work
func (logger *Logger) Wait() {
	logger.watchers.Wait()
}

// Wake signals/broadcasts to any goroutines waiting on the condition variable
func (logger *Logger) Wake() {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.cond.Broadcast()
}

// Reports whether output is an interactive terminal
func isTerminal(output io.Writer) (yes bool) {
	file, ok := output.(*os.File)
	if !ok {
		return
	}
	yes = term.IsTerminal(int(file.Fd()))
	return
}

// Starts a go routine that reads events and writes formatted output to io.Writer.
// Stops when logger.Done is closed and the queue is drained.
func StartWatcher(logger *Logger, output io.Writer) {
	color := isTerminal(output)

	logger.watchers.Add(1)
	go func() {
		defer logger.watchers.Done()

		var dedup dedupState
		for {
			logger.mu.Lock()
			for len(logger.pending) == 0 {
				select {
				case <-logger.Done:
					logger.mu.Unlock()
					return
				default:
					logger.cond.Wait()
				}
			}

			event := logger.pending[0]
			logger.pending = logger.pending[1:]
			logger.mu.Unlock()

			if dedup.suppress(event, time.Now(), output) {
				continue
			}

			fmt.Fprint(output, event.format(color))
		}
	}()
}

// Tracks highly repetitive messages. Returns true when the event should not be printed.
func (dedup *dedupState) suppress(event Event, now time.Time, output io.Writer) (skip bool) {
	if event.Message == "" || event.Message != dedup.lastMsg || now.Sub(event.Timestamp) > dedupWindow {
		dedup.lastMsg = event.Message
		dedup.repeatCount = 1
		return
	}

	skip = true
	dedup.repeatCount++
	if dedup.repeatCount < minRepeats || now.Sub(dedup.lastSuppressTime) < suppressCooldown {
		return
	}

	fmt.Fprintf(output,
		"[%s] [%s] [%s] Suppressed %d repeated messages: %s",
		padTimestamp(event.Timestamp),
		strings.Join(event.Tags, "/"),
		global.InfoLog,
		dedup.repeatCount,
		dedup.lastMsg)
	if !strings.HasSuffix(dedup.lastMsg, "\n") {
		fmt.Fprintln(output)
	}

	dedup.lastSuppressTime = now
	dedup.repeatCount = 0
	return
}
