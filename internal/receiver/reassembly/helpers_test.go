package reassembly

import "framelink/internal/metrics"

type metricValue struct {
	name  string
	value uint64
}

func flatten(collection []metrics.Metric) (values []metricValue) {
	for _, metric := range collection {
		raw, ok := metric.Value.Raw.(uint64)
		if !ok {
			continue
		}
		values = append(values, metricValue{name: metric.Name, value: raw})
	}
	return
}
