package server

import (
	"context"
	"fmt"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"net/http"
	"strconv"
	"time"
)

// Streams every new frame as one multipart/x-mixed-replace part until the client leaves or ctx ends
func handleVideo(baseCtx context.Context, frames FrameSource, serverResponder http.ResponseWriter, clientRequest *http.Request) {
	controller := http.NewResponseController(serverResponder)

	// Stream outlives the server write timeout
	err := controller.SetWriteDeadline(time.Time{})
	if err != nil {
		logctx.LogEvent(baseCtx, global.VerbosityData, global.WarnLog, "failed clearing stream write deadline: %v\n", err)
	}

	streamCtx, cancel := context.WithCancel(clientRequest.Context())
	defer cancel()
	stop := context.AfterFunc(baseCtx, cancel)
	defer stop()

	serverResponder.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+global.MJPEGBoundary)
	serverResponder.Header().Set("Cache-Control", "no-cache, no-store")
	serverResponder.Header().Set("Connection", "close")
	serverResponder.WriteHeader(http.StatusOK)
	controller.Flush()

	pacing := time.NewTicker(global.MJPEGPollInterval)
	defer pacing.Stop()

	var generation uint64
	for {
		frame, newGeneration, err := frames.WaitNewer(streamCtx, generation)
		if err != nil {
			return
		}
		generation = newGeneration

		_, err = fmt.Fprintf(serverResponder, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
			global.MJPEGBoundary, len(frame))
		if err == nil {
			_, err = serverResponder.Write(frame)
		}
		if err == nil {
			_, err = serverResponder.Write([]byte("\r\n"))
		}
		if err == nil {
			err = controller.Flush()
		}
		if err != nil {
			logctx.LogEvent(baseCtx, global.VerbosityData, global.InfoLog, "video stream to %s ended: %v\n", clientRequest.RemoteAddr, err)
			return
		}

		// At most one part per poll interval
		select {
		case <-streamCtx.Done():
			return
		case <-pacing.C:
		}
	}
}

// Returns the latest frame, 204 before the first one
func handleFrame(frames FrameSource, serverResponder http.ResponseWriter) {
	frame, generation, ok := frames.Load()
	if !ok {
		serverResponder.WriteHeader(http.StatusNoContent)
		return
	}
	serverResponder.Header().Set("Content-Type", "image/jpeg")
	serverResponder.Header().Set("Content-Length", strconv.Itoa(len(frame)))
	serverResponder.Header().Set("Cache-Control", "no-cache, no-store")
	serverResponder.Header().Set("X-Frame-Generation", strconv.FormatUint(generation, 10))
	serverResponder.WriteHeader(http.StatusOK)
	serverResponder.Write(frame)
}
