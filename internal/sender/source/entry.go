// Frame sources for the sender loop
package source

import (
	"fmt"
	"framelink/internal/config"
	"framelink/internal/global"
	"framelink/internal/metrics"
	"time"
)

// Opens the source named by cfg.Kind
func New(namespace []string, cfg Config) (src Source, err error) {
	namespace = append(append([]string(nil), namespace...), global.NSSource)

	switch cfg.Kind {
	case config.SourceSynthetic, "":
		src = NewSynthetic(namespace, cfg.Width, cfg.Height, cfg.Quality)
	case config.SourceDirectory:
		var directory *Directory
		directory, err = NewDirectory(namespace, cfg.Path)
		if err == nil {
			src = directory
		}
	case config.SourceMJPEG:
		var stream *MJPEG
		stream, err = NewMJPEG(namespace, cfg.Path)
		if err == nil {
			src = stream
		}
	default:
		err = fmt.Errorf("unknown frame source kind %q", cfg.Kind)
	}
	return
}

func (storage *MetricStorage) record(frame []byte, err error) {
	if err != nil {
		storage.Errors.Add(1)
		return
	}
	storage.Frames.Add(1)
	storage.Bytes.Add(uint64(len(frame)))
}

func (storage *MetricStorage) collect(namespace []string, interval time.Duration) (collection []metrics.Metric) {
	recordTime := time.Now()

	counters := []struct {
		name, description, unit string
		value                   uint64
	}{
		{"frames_produced", "Frames produced by the source in the interval", "count", storage.Frames.Swap(0)},
		{"frame_bytes", "Compressed frame bytes produced in the interval", "bytes", storage.Bytes.Swap(0)},
		{"source_errors", "Failed frame reads in the interval", "count", storage.Errors.Swap(0)},
	}
	for _, counter := range counters {
		collection = append(collection, metrics.Metric{
			Name:        counter.name,
			Description: counter.description,
			Namespace:   namespace,
			Value: metrics.MetricValue{
				Raw:      counter.value,
				Unit:     counter.unit,
				Interval: interval,
			},
			Type:      metrics.Counter,
			Timestamp: recordTime,
		})
	}
	return
}

func (synthetic *Synthetic) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	collection = synthetic.Metrics.collect(synthetic.Namespace, interval)
	return
}

func (directory *Directory) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	collection = directory.Metrics.collect(directory.Namespace, interval)
	return
}

func (stream *MJPEG) CollectMetrics(interval time.Duration) (collection []metrics.Metric) {
	collection = stream.Metrics.collect(stream.Namespace, interval)
	return
}
