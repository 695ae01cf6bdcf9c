package metrics

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Numeric view of a raw metric value
func toFloat(raw interface{}) (value float64, err error) {
	switch typed := raw.(type) {
	case float64:
		value = typed
	case float32:
		value = float64(typed)
	case int:
		value = float64(typed)
	case int32:
		value = float64(typed)
	case int64:
		value = float64(typed)
	case uint:
		value = float64(typed)
	case uint32:
		value = float64(typed)
	case uint64:
		value = float64(typed)
	case string:
		value, err = strconv.ParseFloat(typed, 64)
	default:
		err = fmt.Errorf("metric value of type %T is not numeric", raw)
	}
	return
}

// Combines all matching samples in the window into one metric
func (registry *Registry) Aggregate(aggregation, name string, namespace []string, start, end time.Time) (result Metric, err error) {
	samples := registry.Search(name, namespace, start, end)
	if len(samples) == 0 {
		err = fmt.Errorf("no metrics named %q in requested window", name)
		return
	}

	var sum float64
	lowest := math.Inf(1)
	highest := math.Inf(-1)
	for _, sample := range samples {
		var value float64
		value, err = toFloat(sample.Value.Raw)
		if err != nil {
			err = fmt.Errorf("failed aggregating %q: %w", name, err)
			return
		}
		sum += value
		lowest = math.Min(lowest, value)
		highest = math.Max(highest, value)
	}

	var aggregated float64
	switch aggregation {
	case AggSum:
		aggregated = sum
	case AggMin:
		aggregated = lowest
	case AggMax:
		aggregated = highest
	case AggAvg, "":
		aggregated = sum / float64(len(samples))
	default:
		err = fmt.Errorf("unknown aggregation %q", aggregation)
		return
	}

	latest := samples[len(samples)-1]
	result = Metric{
		Name:        latest.Name,
		Description: latest.Description,
		Namespace:   namespace,
		Type:        Summary,
		Timestamp:   latest.Timestamp,
		Value: MetricValue{
			Raw:      aggregated,
			Unit:     latest.Value.Unit,
			Interval: end.Sub(start),
		},
	}
	return
}
