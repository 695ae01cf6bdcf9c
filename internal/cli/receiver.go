package cli

import (
	"context"
	"flag"
	"fmt"
	"framelink/internal/config"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"framelink/internal/receiver"
	"os"
)

// Command line overrides for the receiver section
type receiveOverrides struct {
	listenIP    string
	videoPort   int
	metricsPort int
	webPort     int
	capture     string
}

func ReceiveMode(ctx context.Context, commandname string, args []string) {
	var configPath string
	var overrides receiveOverrides

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	SetGlobalArguments(commandFlags)
	SetCommon(commandFlags, &configPath)
	commandFlags.StringVar(&overrides.listenIP, "listen-ip", "", "Address to receive video and metrics on")
	commandFlags.IntVar(&overrides.videoPort, "video-port", 0, "UDP port for video fragments")
	commandFlags.IntVar(&overrides.metricsPort, "metrics-port", 0, "UDP port for sender metric snapshots")
	commandFlags.IntVar(&overrides.webPort, "web-port", 0, "HTTP port for the viewer and control API")
	commandFlags.StringVar(&overrides.capture, "capture", "", "Write received datagrams to this pcap file")
	parseFlags(commandFlags, commandname, args)
	logctx.SetLogLevel(ctx, global.Verbosity)

	file, found := loadConfig(configPath)
	if !found {
		logNoConfig(ctx, configPath)
	}

	given := setFlags(commandFlags)
	overrides.apply(&file.Receiver, given)
	err := file.Validate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	daemonConfig, err := receiver.NewDaemonConf(file, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	daemonConfig.Override = func(reloaded *config.File) (err error) {
		overrides.apply(&reloaded.Receiver, given)
		return
	}

	recvDaemon := receiver.NewDaemon(daemonConfig)
	err = recvDaemon.Start(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting receiving daemon: %v\n", err)
		os.Exit(1)
	}

	if found {
		err = recvDaemon.WatchConfig()
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"config file changes will not be applied: %v\n", err)
		}
	}

	runDaemon(ctx, recvDaemon)
}

// Applies only the flags that were given
func (overrides receiveOverrides) apply(section *config.Receiver, given map[string]bool) {
	if given["listen-ip"] {
		section.Network.ListenAddress = overrides.listenIP
	}
	if given["video-port"] {
		section.Network.VideoPort = overrides.videoPort
	}
	if given["metrics-port"] {
		section.Network.MetricsPort = overrides.metricsPort
	}
	if given["web-port"] {
		section.HTTP.Port = overrides.webPort
	}
	if given["capture"] {
		section.Outputs.CaptureFile = overrides.capture
	}
}
