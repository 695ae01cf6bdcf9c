package server

import (
	"context"
	"encoding/json"
	"fmt"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"io"
	"net/http"
	"strings"
)

const maxConfigBody int64 = 1 << 20

// Handles POST /control/{start|stop|restart}
func handleControl(baseCtx context.Context, control Controller, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	action := strings.Trim(strings.TrimPrefix(clientRequest.URL.Path, global.ControlPath), "/")

	var err error
	switch action {
	case "start":
		err = control.StartListeners()
	case "stop":
		err = control.StopListeners()
	case "restart":
		err = control.RestartListeners()
	default:
		jRespStatus(baseCtx, serverResponder, http.StatusNotFound, Jerror{Msg: "unknown control action " + action})
		return
	}
	if err != nil {
		logctx.LogEvent(baseCtx, global.VerbosityStandard, global.ErrorLog, "Listener %s failed: %v\n", action, err)
		jRespStatus(baseCtx, serverResponder, http.StatusInternalServerError, Jerror{Msg: err.Error()})
		return
	}

	logctx.LogEvent(baseCtx, global.VerbosityProgress, global.InfoLog, "Listener %s requested by %s\n", action, clientRequest.RemoteAddr)
	jResp(baseCtx, serverResponder, Jok{OK: true, Message: fmt.Sprintf("listeners %s", doneVerb(action))})
}

func doneVerb(action string) (verb string) {
	switch action {
	case "stop":
		verb = "stopped"
	default:
		verb = action + "ed"
	}
	return
}

// Handles GET (current file) and POST (replace and apply) /config
func handleConfig(baseCtx context.Context, control Controller, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	switch clientRequest.Method {
	case http.MethodGet:
		jResp(baseCtx, serverResponder, control.Config())
	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(clientRequest.Body, maxConfigBody))
		if err != nil {
			jRespStatus(baseCtx, serverResponder, http.StatusBadRequest, Jerror{Msg: "failed reading request body"})
			return
		}

		// Absent keys keep their current values
		file := control.Config()
		err = json.Unmarshal(body, &file)
		if err != nil {
			jRespStatus(baseCtx, serverResponder, http.StatusBadRequest, Jerror{Msg: "invalid config JSON: " + err.Error()})
			return
		}
		err = file.Validate()
		if err != nil {
			jRespStatus(baseCtx, serverResponder, http.StatusBadRequest, Jerror{Msg: err.Error()})
			return
		}

		err = control.ApplyConfig(file)
		if err != nil {
			jRespStatus(baseCtx, serverResponder, http.StatusInternalServerError, Jerror{Msg: err.Error()})
			return
		}
		jResp(baseCtx, serverResponder, Jok{OK: true, Message: "configuration saved"})
	default:
		serverResponder.WriteHeader(http.StatusMethodNotAllowed)
	}
}

