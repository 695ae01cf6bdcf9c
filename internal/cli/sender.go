package cli

import (
	"context"
	"flag"
	"fmt"
	"framelink/internal/config"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"framelink/internal/sender"
	"os"
)

// Command line overrides for the sender section
type sendOverrides struct {
	clientIP    string
	clientPort  int
	metricsPort int
	fps         float64
	source      string
}

func SendMode(ctx context.Context, commandname string, args []string) {
	var configPath string
	var overrides sendOverrides

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	SetGlobalArguments(commandFlags)
	SetCommon(commandFlags, &configPath)
	commandFlags.StringVar(&overrides.clientIP, "client-ip", "", "Receiver address to send to")
	commandFlags.IntVar(&overrides.clientPort, "client-port", 0, "Receiver video port")
	commandFlags.IntVar(&overrides.metricsPort, "client-metrics-port", 0, "Receiver metrics side-channel port")
	commandFlags.Float64Var(&overrides.fps, "fps", 0, "Frame rate limit (0 sends as fast as the source produces)")
	commandFlags.StringVar(&overrides.source, "source", "", "Frame source: 'synthetic', a JPEG directory, an MJPEG file, or '-' for stdin")
	parseFlags(commandFlags, commandname, args)
	logctx.SetLogLevel(ctx, global.Verbosity)

	file, found := loadConfig(configPath)
	if !found {
		logNoConfig(ctx, configPath)
	}

	given := setFlags(commandFlags)
	err := overrides.apply(&file.Sender, given)
	if err == nil {
		err = file.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	daemonConfig, err := sender.NewDaemonConf(file, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	daemonConfig.Override = func(reloaded *config.File) (err error) {
		err = overrides.apply(&reloaded.Sender, given)
		return
	}

	sendDaemon := sender.NewDaemon(daemonConfig)
	err = sendDaemon.Start(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting sending daemon: %v\n", err)
		os.Exit(1)
	}

	runDaemon(ctx, sendDaemon)
}

// Applies only the flags that were given
func (overrides sendOverrides) apply(section *config.Sender, given map[string]bool) (err error) {
	if given["client-ip"] {
		section.Network.ClientAddress = overrides.clientIP
	}
	if given["client-port"] {
		section.Network.VideoPort = overrides.clientPort
	}
	if given["client-metrics-port"] {
		section.Network.MetricsPort = overrides.metricsPort
	}
	if given["fps"] {
		section.FPSLimit = overrides.fps
	}
	if given["source"] {
		section.Source.Kind, section.Source.Path, err = parseSource(overrides.source)
	}
	return
}

// Maps a --source value to a source kind and path
func parseSource(value string) (kind, path string, err error) {
	switch value {
	case "", config.SourceSynthetic:
		kind = config.SourceSynthetic
		return
	case "-":
		kind = config.SourceMJPEG
		path = value
		return
	}

	info, err := os.Stat(value)
	if err != nil {
		err = fmt.Errorf("invalid frame source: %w", err)
		return
	}
	path = value
	if info.IsDir() {
		kind = config.SourceDirectory
	} else {
		kind = config.SourceMJPEG
	}
	return
}
