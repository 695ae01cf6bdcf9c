package cli

import "framelink/internal/global"

// Top level commands
var subcommands = []global.CommandSet{
	{
		CommandName:     "send",
		Description:     "Send Video",
		FullDescription: "Captures frames from the configured source, fragments and transmits them with periodic link snapshots",
	},
	{
		CommandName:     "receive",
		Description:     "Receive Video",
		FullDescription: "Receives fragments, reassembles frames, and serves the newest frame, stream, and link metrics over HTTP",
	},
	{
		CommandName:     "configure",
		Description:     "Configuration Actions",
		FullDescription: "Write a default configuration file or show the effective configuration",
	},
	{
		CommandName:     "version",
		Description:     "Show Version Information",
		FullDescription: "Display meta information about program",
	},
}

func DefineOptions() (cmdOpts *global.CommandSet) {
	cmdOpts = &global.CommandSet{
		CommandName:     RootCLICommand,
		Description:     "Framelink UDP Video Link",
		FullDescription: "  Streams live video frames over lossy, unordered UDP and tracks link health",
		ChildCommands:   make(map[string]*global.CommandSet, len(subcommands)),
	}
	for i := range subcommands {
		child := subcommands[i]
		cmdOpts.ChildCommands[child.CommandName] = &child
	}
	return
}
