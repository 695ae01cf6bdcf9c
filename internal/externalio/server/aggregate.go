package server

import (
	"context"
	"framelink/internal/global"
	"framelink/internal/metrics"
	"net/http"
	"time"
)

// Combines one metric over a time window (sum, min, max or avg, default avg)
func handleAggregation(baseCtx context.Context, aggregate AggSearcher, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	name := clientRequest.FormValue("name")
	if name == "" {
		jRespStatus(baseCtx, serverResponder, http.StatusBadRequest, Jerror{Msg: "name is required"})
		return
	}

	aggregation := clientRequest.FormValue("aggregation")
	switch aggregation {
	case "":
		aggregation = metrics.AggAvg
	case metrics.AggSum, metrics.AggMin, metrics.AggMax, metrics.AggAvg:
	default:
		jRespStatus(baseCtx, serverResponder, http.StatusBadRequest, Jerror{Msg: "unknown aggregation " + aggregation})
		return
	}

	start, end, err := parseTimeWindow(clientRequest, time.Now())
	if err != nil {
		jRespStatus(baseCtx, serverResponder, http.StatusBadRequest, Jerror{Msg: err.Error()})
		return
	}

	result, err := aggregate(aggregation, name, requestNamespace(clientRequest, global.AggregationPath), start, end)
	if err != nil {
		jRespStatus(baseCtx, serverResponder, http.StatusNotFound, Jerror{Msg: err.Error()})
		return
	}
	jResp(baseCtx, serverResponder, result.Convert())
}
