package main

import (
	"context"
	"flag"
	"framelink/internal/cli"
	"framelink/internal/global"
	"framelink/internal/logctx"
	"os"

	"github.com/google/uuid"
)

// Subcommand entry points keyed by command name
var modes = map[string]func(ctx context.Context, command string, args []string){
	"send":    cli.SendMode,
	"receive": cli.ReceiveMode,
	"configure": func(_ context.Context, command string, args []string) {
		cli.SetupMode(command, args)
	},
	"version": func(_ context.Context, _ string, args []string) {
		cli.VersionMode(args)
	},
}

func main() {
	global.CmdOpts = cli.DefineOptions()

	commandFlags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	cli.SetGlobalArguments(commandFlags)
	usage := func() {
		cli.PrintHelpMenu(commandFlags, cli.RootCLICommand, global.CmdOpts)
	}
	commandFlags.Usage = usage
	commandFlags.Parse(os.Args[1:])

	// Global flags may precede the command
	remaining := commandFlags.Args()
	if len(remaining) == 0 {
		usage()
		os.Exit(1)
	}
	mode, known := modes[remaining[0]]
	if !known {
		usage()
		os.Exit(1)
	}

	global.SessionID = uuid.NewString()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := logctx.NewLogger("global", global.Verbosity, ctx.Done())
	ctx = logctx.WithLogger(ctx, logger)
	logctx.StartWatcher(logger, os.Stdout)

	mode(ctx, remaining[0], remaining[1:])

	// Flush whatever the command left queued
	cancel()
	logger.Wake()
	logger.Wait()
}
