// Command docsentinel is the CLI entrypoint: scan, events, accept-fix,
// ignore, analyze, and version, wired to internal/cli's cobra command tree.
package main

import (
	"os"

	"github.com/docsentinel/docsentinel/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
