// HTTP surfaces: the receiver viewer/control server and the local metric query server
package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Read in web static files at compile time
//
//go:embed static-files/index.html static-files/metric-help.html
var webFiles embed.FS

func helpPage(address string, port int) (page []byte, err error) {
	page, err = webFiles.ReadFile("static-files/metric-help.html")
	if err != nil {
		err = fmt.Errorf("failed reading metric help html page from internal fs: %w", err)
		return
	}

	// Replace variables in html with globals
	page = bytes.ReplaceAll(page, []byte("@@LISTEN_ADDR@@"), []byte(address))
	page = bytes.ReplaceAll(page, []byte("@@LISTEN_PORT@@"), []byte(strconv.Itoa(port)))
	page = bytes.ReplaceAll(page, []byte("@@DATA_PATH@@"), []byte(global.DataPath))
	page = bytes.ReplaceAll(page, []byte("@@DISCOVER_PATH@@"), []byte(global.DiscoveryPath))
	page = bytes.ReplaceAll(page, []byte("@@AGGREGATION_PATH@@"), []byte(global.AggregationPath))
	return
}

// Wraps a handler with a method check
func only(method string, handler http.HandlerFunc) (wrapped http.HandlerFunc) {
	wrapped = func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.Method != method {
			serverResponder.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(serverResponder, clientRequest)
	}
	return
}

func servePage(page []byte) (handler http.HandlerFunc) {
	handler = func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		serverResponder.Header().Set("Content-Type", "text/html; charset=utf-8")
		serverResponder.WriteHeader(http.StatusOK)
		serverResponder.Write(page)
	}
	return
}

// Attaches metric registry endpoints to mux
func registerQueries(ctx context.Context, requestMultiplexer *http.ServeMux, queries Queries) {
	requestMultiplexer.HandleFunc(global.DiscoveryPath, only(http.MethodGet, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		handleDiscovery(ctx, queries.Discover, serverResponder, clientRequest)
	}))
	requestMultiplexer.HandleFunc(global.DataPath, only(http.MethodGet, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		handleData(ctx, queries.Search, serverResponder, clientRequest)
	}))
	requestMultiplexer.HandleFunc(global.AggregationPath, only(http.MethodGet, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		handleAggregation(ctx, queries.Aggregate, serverResponder, clientRequest)
	}))
}

func newServer(ctx context.Context, address string, port int, handler http.Handler) (server *http.Server) {
	server = &http.Server{
		Addr:         net.JoinHostPort(address, strconv.Itoa(port)),
		Handler:      handler,
		ReadTimeout:  global.HTTPReadTimeout,
		WriteTimeout: global.HTTPWriteTimeout,
		IdleTimeout:  global.HTTPIdleTimeout,
		ErrorLog:     log.New(httpLogWriter{ctx: ctx}, "", 0),
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	return
}

// Sets up the metric-only query server (local machine only)
func SetupQueryListener(ctx context.Context, port int, queries Queries) (server *http.Server, err error) {
	requestMultiplexer := http.NewServeMux()

	page, err := helpPage(global.HTTPListenAddr, port)
	if err != nil {
		return
	}

	// Root help page
	requestMultiplexer.HandleFunc("/", only(http.MethodGet, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.URL.Path != "/" {
			serverResponder.WriteHeader(http.StatusNotFound)
			return
		}
		servePage(page)(serverResponder, clientRequest)
	}))
	registerQueries(ctx, requestMultiplexer, queries)

	server = newServer(ctx, global.HTTPListenAddr, port, requestMultiplexer)
	return
}

// Sets up the receiver viewer, stream, control and metric endpoints
func SetupReceiverListener(ctx context.Context, address string, port int, frames FrameSource, control Controller, queries Queries) (server *http.Server, err error) {
	requestMultiplexer := http.NewServeMux()

	indexPage, err := webFiles.ReadFile("static-files/index.html")
	if err != nil {
		err = fmt.Errorf("failed reading viewer html page from internal fs: %w", err)
		return
	}
	metricPage, err := helpPage(address, port)
	if err != nil {
		return
	}

	requestMultiplexer.HandleFunc("/", func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		if clientRequest.URL.Path != "/" {
			serverResponder.WriteHeader(http.StatusNotFound)
			return
		}
		if clientRequest.Method != http.MethodGet {
			serverResponder.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		servePage(indexPage)(serverResponder, clientRequest)
	})
	requestMultiplexer.HandleFunc(global.MetricHelpPath, only(http.MethodGet, servePage(metricPage)))

	// Video
	requestMultiplexer.HandleFunc("/video", only(http.MethodGet, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		handleVideo(ctx, frames, serverResponder, clientRequest)
	}))
	requestMultiplexer.HandleFunc("/frame", only(http.MethodGet, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		handleFrame(frames, serverResponder)
	}))

	// Link state
	requestMultiplexer.HandleFunc("/metrics", only(http.MethodGet, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		sender, client := control.Metrics()
		jResp(ctx, serverResponder, metricsReply{Client: client, Server: sender})
	}))
	requestMultiplexer.HandleFunc("/health", only(http.MethodGet, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		jResp(ctx, serverResponder, healthReply{
			OK:               true,
			ReceiversRunning: control.ListenersRunning(),
			Session:          global.SessionID,
			ReceiverConfig:   control.Config().Receiver,
		})
	}))

	// Control
	requestMultiplexer.HandleFunc(global.ControlPath, only(http.MethodPost, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		handleControl(ctx, control, serverResponder, clientRequest)
	}))
	requestMultiplexer.HandleFunc("/config", func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		handleConfig(ctx, control, serverResponder, clientRequest)
	})
	requestMultiplexer.HandleFunc("/shutdown", only(http.MethodPost, func(serverResponder http.ResponseWriter, clientRequest *http.Request) {
		terminated := control.RequestShutdown()
		jResp(ctx, serverResponder, shutdownReply{OK: true, Message: "Shutdown requested", Terminated: terminated})
	}))

	registerQueries(ctx, requestMultiplexer, queries)

	server = newServer(ctx, address, port, requestMultiplexer)
	return
}

// Starts the HTTP server and waits for requests
func Start(ctx context.Context, server *http.Server) {
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "HTTP server starting on %s (http://%s/)\n",
		server.Addr,
		server.Addr,
	)
	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "HTTP server failed to start: %v\n", err)
	}
}

// Encodes JSON and sends as response body
func jResp(ctx context.Context, serverResponder http.ResponseWriter, content any) {
	jRespStatus(ctx, serverResponder, http.StatusOK, content)
}

func jRespStatus(ctx context.Context, serverResponder http.ResponseWriter, status int, content any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(content); err != nil {
		serverResponder.WriteHeader(http.StatusInternalServerError)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "Failed marshaling response: %v\n", err)
		return
	}
	serverResponder.Header().Set("Content-Type", "application/json")
	serverResponder.WriteHeader(status)
	serverResponder.Write(buf.Bytes())
}

// Logs HTTP server errors to internal program buffer (via context logger)
func (logWriter httpLogWriter) Write(p []byte) (n int, err error) {
	n = len(p)
	if n == 0 {
		return
	}
	logctx.LogEvent(
		logWriter.ctx,
		global.VerbosityStandard,
		global.ErrorLog,
		"%s\n", strings.TrimSpace(string(p)),
	)
	return
}
