package server

import (
	"context"
	"fmt"
	"framelink/internal/global"
	"framelink/internal/metrics"
	"net/http"
	"strings"
)

// Empty selects every type
func parseMetricType(raw string) (metricType metrics.MetricType, err error) {
	metricType = metrics.MetricType(strings.ToLower(raw))
	switch metricType {
	case "", metrics.Counter, metrics.Gauge, metrics.Summary:
	default:
		err = fmt.Errorf("unknown metric type %q", raw)
	}
	return
}

// Lists one sample per matching metric so clients can learn names, units and namespaces
func handleDiscovery(baseCtx context.Context, discover Discoverer, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	metricType, err := parseMetricType(clientRequest.FormValue("type"))
	if err != nil {
		jRespStatus(baseCtx, serverResponder, http.StatusBadRequest, Jerror{Msg: err.Error()})
		return
	}

	found := discover(
		clientRequest.FormValue("name"),
		clientRequest.FormValue("description"),
		requestNamespace(clientRequest, global.DiscoveryPath),
		clientRequest.FormValue("unit"),
		metricType)
	if len(found) == 0 {
		jRespStatus(baseCtx, serverResponder, http.StatusNotFound, Jerror{Msg: "no metrics match the query"})
		return
	}
	jResp(baseCtx, serverResponder, metrics.ConvertAll(found))
}
