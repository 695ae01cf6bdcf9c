package cli

import (
	"context"
	"flag"
	"fmt"
	"framelink/internal/config"
	"framelink/internal/global"
	"framelink/internal/lifecycle"
	"framelink/internal/logctx"
	"os"
)

// Current verbosity is the default so a level given before the command survives subcommand parsing
func SetGlobalArguments(fs *flag.FlagSet) {
	current := global.Verbosity
	fs.IntVar(&global.Verbosity, "v", current, "Increase detailed progress messages (Higher is more verbose) <0...5>")
	fs.IntVar(&global.Verbosity, "verbosity", current, "Increase detailed progress messages (Higher is more verbose) <0...5>")
}

func SetCommon(fs *flag.FlagSet, configPath *string) {
	fs.StringVar(configPath, "c", global.DefaultConfigPath, "Path to the configuration file")
	fs.StringVar(configPath, "config", global.DefaultConfigPath, "Path to the configuration file")
}

// Parses args, printing help and exiting on -h
func parseFlags(commandFlags *flag.FlagSet, commandname string, args []string) {
	commandFlags.Usage = func() {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
	}
	_ = commandFlags.Parse(args)
}

// Loads the shared config file, falling back to defaults when it does not exist
func loadConfig(configPath string) (file config.File, found bool) {
	file, found, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return
}

// Names of flags given on the command line
func setFlags(fs *flag.FlagSet) (set map[string]bool) {
	set = make(map[string]bool)
	fs.Visit(func(arg *flag.Flag) {
		set[arg.Name] = true
	})
	return
}

type daemon interface {
	lifecycle.DaemonLike
	Run()
}

// Reports readiness, handles signals, and blocks until the daemon has stopped
func runDaemon(ctx context.Context, d daemon) {
	go lifecycle.SignalHandler(ctx, d)

	err := lifecycle.NotifyReady(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
			"failed notifying service manager: %v\n", err)
	}

	d.Run()
	d.Shutdown() // waits for a shutdown already in progress
}

func logNoConfig(ctx context.Context, configPath string) {
	logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
		"config file %s not found, running with defaults\n", configPath)
}
