package server

import (
	"context"
	"fmt"
	"framelink/internal/global"
	"framelink/internal/metrics"
	"net/http"
	"strings"
	"time"
)

// Parses starttime/endtime form values.
// Start defaults to one minute ago, end to now. Relative values are durations from now.
func parseTimeWindow(clientRequest *http.Request, now time.Time) (start, end time.Time, err error) {
	rawStartTime := clientRequest.FormValue("starttime")
	if rawStartTime == "" {
		start = now.Add(-1 * time.Minute)
	} else if rawStartTime[0] == '-' || rawStartTime[0] == '+' {
		dur, parseErr := time.ParseDuration(rawStartTime)
		if parseErr == nil {
			start = now.Add(dur)
		} else {
			// Unparsable relative start falls back to last minute
			start = now.Add(-1 * time.Minute)
		}
	} else {
		start, err = time.Parse(time.RFC3339Nano, rawStartTime)
		if err != nil {
			err = fmt.Errorf("invalid starttime: %w", err)
			return
		}
	}

	rawEndTime := clientRequest.FormValue("endtime")
	if rawEndTime == "now" || rawEndTime == "" {
		end = now
	} else if rawEndTime[0] == '-' {
		var dur time.Duration
		dur, err = time.ParseDuration(rawEndTime)
		if err != nil {
			err = fmt.Errorf("invalid endtime: %w", err)
			return
		}
		end = now.Add(dur)
	} else {
		end, err = time.Parse(time.RFC3339Nano, rawEndTime)
		if err != nil {
			err = fmt.Errorf("invalid endtime: %w", err)
			return
		}
	}

	if start.After(end) {
		err = fmt.Errorf("starttime is after endtime")
	}
	return
}

func requestNamespace(clientRequest *http.Request, prefix string) (namespace []string) {
	rawNamespace := strings.TrimPrefix(clientRequest.URL.Path, prefix)
	if rawNamespace != "" {
		namespace = strings.Split(rawNamespace, "/")
	}
	return
}

// Handles metric search requests based on time for data
func handleData(baseCtx context.Context, search DataSearcher, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	reqNamespace := requestNamespace(clientRequest, global.DataPath)
	reqName := clientRequest.FormValue("name")

	reqStartTime, reqEndTime, err := parseTimeWindow(clientRequest, time.Now())
	if err != nil {
		jRespStatus(baseCtx, serverResponder, http.StatusBadRequest, Jerror{Msg: err.Error()})
		return
	}

	// Query internal metric registry
	results := metrics.ConvertAll(search(reqName, reqNamespace, reqStartTime, reqEndTime))

	if len(results) == 0 {
		jResp(baseCtx, serverResponder, Jerror{Msg: "Search returned no results"})
	} else {
		jResp(baseCtx, serverResponder, results)
	}
}
