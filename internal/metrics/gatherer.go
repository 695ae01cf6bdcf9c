package metrics

import (
	"context"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"runtime/debug"
	"time"
)

// Registry is pruned once per this many collection intervals
const pruneEveryIntervals int = 15

// Supplies the collectors alive at the time of the call (listeners come and go on restart)
type CollectorSource func() []Collector

// Runs after each interval's collection has been stored
type IntervalHook func(ctx context.Context, timeSlice time.Time, collection []Metric)

// Polls collectors on a fixed interval into its own registry
type Gatherer struct {
	Registry  *Registry
	Interval  time.Duration // collection interval
	Retention time.Duration // age after which slices are pruned

	source CollectorSource
	hooks  []IntervalHook
}

func NewGatherer(source CollectorSource, interval, retention time.Duration) (new *Gatherer) {
	new = &Gatherer{
		Registry:  New(),
		Interval:  interval,
		Retention: retention,
		source:    source,
	}
	return
}

// Registers fn to run after every collection. Not safe once Run has started.
func (gatherer *Gatherer) OnInterval(fn IntervalHook) {
	gatherer.hooks = append(gatherer.hooks, fn)
}

// Blocks until ctx is cancelled
func (gatherer *Gatherer) Run(ctx context.Context) {
	ctx = logctx.AppendCtxTag(ctx, global.NSMetric)

	// Poll twice per interval so a late tick never skips a slice
	ticker := time.NewTicker(gatherer.Interval / 2)
	defer ticker.Stop()

	nextCollect := time.Now().Add(gatherer.Interval)
	nextPrune := time.Now().Add(time.Duration(pruneEveryIntervals) * gatherer.Interval)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !now.Before(nextCollect) {
				nextCollect = now.Add(gatherer.Interval)
				timeSlice := gatherer.Registry.NewTimeSlice(now, gatherer.Interval)
				go gatherer.collect(ctx, timeSlice)
			}
			if !now.Before(nextPrune) {
				nextPrune = now.Add(time.Duration(pruneEveryIntervals) * gatherer.Interval)
				gatherer.Registry.Prune(now, gatherer.Retention)
			}
		}
	}
}

// One collection pass. A panicking collector loses this interval only.
func (gatherer *Gatherer) collect(ctx context.Context, timeSlice time.Time) {
	defer func() {
		if fatalError := recover(); fatalError != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in metric collection: %v\n%s", fatalError, debug.Stack())
		}
	}()

	var collection []Metric
	for _, collector := range gatherer.source() {
		collection = append(collection, collector.CollectMetrics(gatherer.Interval)...)
	}
	gatherer.Registry.Add(timeSlice, collection)

	for _, hook := range gatherer.hooks {
		hook(ctx, timeSlice, collection)
	}
}
