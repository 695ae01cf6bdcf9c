package metrics

import (
	"fmt"
	"strings"
	"time"
)

// Converts internal metric type to export (JSON) metric
func (inMetric Metric) Convert() (outMetric JMetric) {
	outMetric.Name = inMetric.Name
	outMetric.Description = inMetric.Description
	outMetric.Type = string(inMetric.Type)
	outMetric.Namespace = strings.Join(inMetric.Namespace, "/")

	outMetric.Value.Unit = inMetric.Value.Unit
	outMetric.Value.Interval = inMetric.Value.Interval.String()
	if inMetric.Value.Raw != nil {
		outMetric.Value.Raw = fmt.Sprintf("%v", inMetric.Value.Raw)
	}

	if !inMetric.Timestamp.IsZero() {
		outMetric.Timestamp = inMetric.Timestamp.Format(time.RFC3339Nano)
	}
	return
}

// Converts a batch for export
func ConvertAll(inMetrics []Metric) (outMetrics []JMetric) {
	outMetrics = make([]JMetric, 0, len(inMetrics))
	for _, metric := range inMetrics {
		outMetrics = append(outMetrics, metric.Convert())
	}
	return
}
