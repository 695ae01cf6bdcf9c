package cli

import (
	"fmt"
	"framelink/internal/global"
	"runtime"
)

func VersionMode(args []string) {
	if len(args) > 0 && (args[0] == "--verbosity" || args[0] == "-v") {
		fmt.Printf("Framelink %s\n", global.ProgVersion)
		fmt.Printf("Built using %s(%s) for %s on %s\n", runtime.Version(), runtime.Compiler, runtime.GOOS, runtime.GOARCH)
		return
	}
	fmt.Println(global.ProgVersion)
}
