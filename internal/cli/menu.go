package cli

import (
	"flag"
	"fmt"
	"framelink/internal/global"
	"io"
	"os"
	"sort"
	"strings"
)

const (
	RootCLICommand  string = "root"
	helpMenuTrailer string = `
Examples:
  framelink receive -c /etc/framelink.json
  framelink send --client-ip 192.0.2.10 --fps 30 --source /srv/frames
  ffmpeg -f v4l2 -i /dev/video0 -f mjpeg - | framelink send --source -
`
	baseIndentSpaces int = 2
)

// Full standardized help menu (wraps option printer as well)
func PrintHelpMenu(fs *flag.FlagSet, command string, rootCmd *global.CommandSet) {
	writeHelpMenu(os.Stdout, fs, command, rootCmd)
}

// Locates command in the tree, returning it with its parents (broad->specific)
func findCommand(rootCmd *global.CommandSet, command string) (found *global.CommandSet, parents []*global.CommandSet) {
	if command == "" || command == RootCLICommand {
		found = rootCmd
		return
	}
	if cmd, ok := rootCmd.ChildCommands[command]; ok {
		found = cmd
		parents = []*global.CommandSet{rootCmd}
		return
	}
	for _, topCmd := range rootCmd.ChildCommands {
		if sub, ok := topCmd.ChildCommands[command]; ok {
			found = sub
			parents = []*global.CommandSet{rootCmd, topCmd}
			return
		}
	}
	return
}

// Usage top line, root name omitted
func usageLine(program string, cmd *global.CommandSet, parents []*global.CommandSet) (line string) {
	parts := []string{program}
	for _, parent := range parents {
		if parent.CommandName == RootCLICommand {
			continue
		}
		parts = append(parts, parent.CommandName)
	}
	if cmd.CommandName != RootCLICommand {
		parts = append(parts, cmd.CommandName)
	}

	switch len(cmd.ChildCommands) {
	case 0:
	case 1:
		for name := range cmd.ChildCommands {
			parts = append(parts, name)
		}
	default:
		parts = append(parts, "[subcommand]")
	}
	if cmd.UsageOption != "" {
		parts = append(parts, cmd.UsageOption)
	}
	line = strings.Join(parts, " ")
	return
}

func writeHelpMenu(out io.Writer, fs *flag.FlagSet, command string, rootCmd *global.CommandSet) {
	cmd, parents := findCommand(rootCmd, command)
	if cmd == nil {
		fmt.Fprintf(out, "Unknown command: %s\n", command)
		return
	}

	fmt.Fprintf(out, "Usage: %s\n\n", usageLine(os.Args[0], cmd, parents))

	// Description
	if cmd == rootCmd {
		fmt.Fprintln(out, cmd.Description)
		fmt.Fprintln(out, cmd.FullDescription)
		fmt.Fprintln(out)
	} else if cmd.FullDescription != "" {
		fmt.Fprintln(out, "  Description:")
		fmt.Fprintf(out, "    %s\n\n", cmd.FullDescription)
	}

	// Subcommands
	if len(cmd.ChildCommands) > 0 {
		names := make([]string, 0, len(cmd.ChildCommands))
		width := 0
		for name := range cmd.ChildCommands {
			names = append(names, name)
			width = max(width, len(name))
		}
		sort.Strings(names)

		fmt.Fprintf(out, "%sSubcommands:\n", strings.Repeat(" ", baseIndentSpaces))
		for _, name := range names {
			fmt.Fprintf(out, "%s%-*s  - %s\n", strings.Repeat(" ", baseIndentSpaces+2), width, name, cmd.ChildCommands[name].Description)
		}
		fmt.Fprintln(out)
	}

	// Flags
	if fs != nil {
		printFlagOptions(out, fs)
	}

	// Top-level trailer
	if cmd == rootCmd {
		fmt.Fprint(out, helpMenuTrailer)
	}
}

// One help line, short and long spellings of the same flag merged
type flagOption struct {
	names      []string
	usage      string
	defaultVal string
	hasShort   bool
}

// Merges flags registered twice under the same usage text (like -c and --config)
func collectFlagOptions(fs *flag.FlagSet) (options []*flagOption) {
	byUsage := make(map[string]*flagOption)

	fs.VisitAll(func(arg *flag.Flag) {
		option, seen := byUsage[arg.Usage]
		if !seen {
			option = &flagOption{usage: arg.Usage, defaultVal: arg.DefValue}
			byUsage[arg.Usage] = option
			options = append(options, option)
		}
		if len(arg.Name) == 1 {
			option.names = append(option.names, "-"+arg.Name)
			option.hasShort = true
		} else {
			option.names = append(option.names, "--"+arg.Name)
		}
	})

	for _, option := range options {
		// Short spelling first
		sort.Slice(option.names, func(a, b int) bool {
			return len(option.names[a]) < len(option.names[b])
		})
	}
	sort.Slice(options, func(a, b int) bool {
		return strings.ToLower(options[a].names[0]) < strings.ToLower(options[b].names[0])
	})
	return
}

// Custom printer to deduplicate short/long usages and indent automatically
func printFlagOptions(out io.Writer, fs *flag.FlagSet) {
	const joiner string = ", "
	const usageGap int = 2

	// Long-only flags line up with the long half of "-x, --long"
	longOnlyOffset := len(joiner) + len("-x")

	options := collectFlagOptions(fs)

	width := 0
	for _, option := range options {
		left := len(strings.Join(option.names, joiner))
		if !option.hasShort {
			left += longOnlyOffset
		}
		width = max(width, left)
	}

	fmt.Fprintf(out, "%sOptions:\n", strings.Repeat(" ", baseIndentSpaces))
	for _, option := range options {
		left := strings.Join(option.names, joiner)
		indent := baseIndentSpaces
		used := len(left)
		if !option.hasShort {
			indent += longOnlyOffset
			used += longOnlyOffset
		}
		padding := max(width-used+usageGap, usageGap)

		// Skip printing any "empty" defaults
		desc := option.usage
		if option.defaultVal != "" && option.defaultVal != "false" && option.defaultVal != "0" {
			desc += fmt.Sprintf(" [default: %s]", option.defaultVal)
		}

		fmt.Fprintf(out, "%s%s%s%s\n", strings.Repeat(" ", indent), left, strings.Repeat(" ", padding), desc)
	}
}
