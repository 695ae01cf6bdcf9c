package cli

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"framelink/internal/config"
	"framelink/internal/global"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Configuration file options
func SetupMode(commandname string, args []string) {
	var writeDefaultPath string
	var show bool
	var configPath string

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	SetCommon(commandFlags, &configPath)
	commandFlags.StringVar(&writeDefaultPath, "write-default", "", "Write the default configuration to this path (refuses to overwrite)")
	commandFlags.BoolVar(&show, "show", false, "Print the effective configuration (file merged with defaults and environment)")

	if len(args) < 1 {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
		os.Exit(1)
	}
	parseFlags(commandFlags, commandname, args)

	var err error
	if writeDefaultPath != "" {
		err = writeDefault(writeDefaultPath)
		if err == nil {
			fmt.Printf("Wrote default configuration to %s\n", writeDefaultPath)
		}
	} else if show {
		file, _ := loadConfig(configPath)
		if term.IsTerminal(int(os.Stdout.Fd())) {
			printSummary(os.Stdout, file)
		} else {
			err = printJSON(os.Stdout, file)
		}
	} else {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func writeDefault(path string) (err error) {
	_, err = os.Stat(path)
	if err == nil {
		err = fmt.Errorf("refusing to overwrite existing file %s", path)
		return
	}
	if !errors.Is(err, os.ErrNotExist) {
		return
	}
	err = config.Save(path, config.Defaults())
	return
}

func printJSON(out io.Writer, file config.File) (err error) {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(file)
	return
}

// Human readable view plus the equivalent sender command line
func printSummary(out io.Writer, file config.File) {
	recv := file.Receiver
	send := file.Sender

	fmt.Fprintln(out, "Receiver:")
	fmt.Fprintf(out, "  Video listener:    %s:%d\n", recv.Network.ListenAddress, recv.Network.VideoPort)
	fmt.Fprintf(out, "  Metrics listener:  %s:%d\n", recv.Network.ListenAddress, recv.Network.MetricsPort)
	fmt.Fprintf(out, "  Web viewer:        http://%s:%d/\n", recv.HTTP.Address, recv.HTTP.Port)
	fmt.Fprintf(out, "  Eviction lag:      %d frames\n", recv.Reassembly.EvictionLag)
	fmt.Fprintf(out, "  Frame idle limit:  %s\n", recv.Reassembly.FrameIdleTimeout)
	if recv.Outputs.BeatsAddress != "" {
		fmt.Fprintf(out, "  Beats output:      %s\n", recv.Outputs.BeatsAddress)
	}
	if recv.Outputs.CaptureFile != "" {
		fmt.Fprintf(out, "  Packet capture:    %s\n", recv.Outputs.CaptureFile)
	}

	fmt.Fprintln(out, "Sender:")
	fmt.Fprintf(out, "  Destination:       %s:%d (metrics %d)\n", send.Network.ClientAddress, send.Network.VideoPort, send.Network.MetricsPort)
	fmt.Fprintf(out, "  Source:            %s %s\n", send.Source.Kind, send.Source.Path)
	fmt.Fprintf(out, "  Max payload:       %d bytes\n", send.MaxPayload)
	if send.FPSLimit > 0 {
		fmt.Fprintf(out, "  FPS limit:         %g\n", send.FPSLimit)
	} else {
		fmt.Fprintln(out, "  FPS limit:         unlimited")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Start a sender with these settings:")
	fmt.Fprintf(out, "  %s\n", senderCommandLine(file.Sender))
}

func senderCommandLine(send config.Sender) (line string) {
	parts := []string{
		global.ProgBaseName, "send",
		"--client-ip", send.Network.ClientAddress,
		"--client-port", strconv.Itoa(send.Network.VideoPort),
		"--client-metrics-port", strconv.Itoa(send.Network.MetricsPort),
	}
	if send.FPSLimit > 0 {
		parts = append(parts, "--fps", strconv.FormatFloat(send.FPSLimit, 'g', -1, 64))
	}
	switch send.Source.Kind {
	case config.SourceDirectory, config.SourceMJPEG:
		parts = append(parts, "--source", send.Source.Path)
	}
	line = strings.Join(parts, " ")
	return
}
