// Command aether is the request filter CLI of the Aether browser.
package main

import (
	"runtime"

	"github.com/aetherbrowser/aether/internal/cli/cmd"
	"github.com/aetherbrowser/aether/internal/domain/build"
)

// Build-time variables (set via ldflags).
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetBuildInfo(build.Info{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
	})

	cmd.Execute()
}
