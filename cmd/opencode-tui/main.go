package main

import (
	"fmt"
	"os"

	"github.com/GriffinCanCode/opencode-tui/internal/cli"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.SetVersion(fmt.Sprintf("%s (commit: %s)", version, commit))
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "opencode-tui:", err)
		os.Exit(1)
	}
}
