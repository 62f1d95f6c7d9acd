// imposd CLI - command-line interface for the imposd virtualization server
package main

import (
	"github.com/getimposd/imposd/pkg/cli"
)

// Build-time variables set via ldflags
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cli.Execute(cli.BuildInfo{Version: version, Commit: commit, Date: buildDate})
}
