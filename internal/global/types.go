package global

// Node in the CLI command tree, rendered by the help menu
type CommandSet struct {
	CommandName     string
	UsageOption     string // trailing argument hint on the usage line
	Description     string // one line shown in the parent's listing
	FullDescription string
	ChildCommands   map[string]*CommandSet
}

// Keys for values carried on context.Context
type CtxKey string
