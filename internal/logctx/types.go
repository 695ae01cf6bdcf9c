package logctx

import (
	"sync"
	"time"
)

type Event struct {
	Timestamp time.Time
	Severity  string   // global.ErrorLog, WarnLog or InfoLog
	Tags      []string // broad->specific
	Message   string
}

// Context-carried event queue drained by watcher goroutines
type Logger struct {
	ID      string
	Started time.Time
	Done    <-chan struct{} // watchers exit once closed and drained

	mu        sync.Mutex // guards pending and Verbosity
	cond      *sync.Cond
	pending   []Event
	Verbosity int // events above this level are dropped (errors never are)

	watchers *sync.WaitGroup
}

// Repeat suppression state, one per watcher
type dedupState struct {
	lastMsg          string
	repeatCount      int
	lastSuppressTime time.Time
}
