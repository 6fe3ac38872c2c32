// Package cli defines the opencode-tui command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/opencode-tui/internal/infrastructure/config"
)

var version = "dev"

// SetVersion sets the version reported by --version
func SetVersion(v string) {
	version = v
}

type rootOptions struct {
	configFile string
}

// load reads the settings file named by --config, or the default one
func (o *rootOptions) load() (*config.Config, error) {
	if o.configFile != "" {
		return config.LoadFile(o.configFile)
	}
	return config.Load()
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "opencode-tui",
		Short: "Host the OpenCode TUI for editors and terminal clients",
		Long: `opencode-tui runs OpenCode in a pseudo-terminal and exposes it to any
number of clients over a websocket at /terminal, together with a small REST
API for palette commands, file references and foreign terminals.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "",
		"settings file (default: $OPENCODE_TUI_CONFIG_DIR or the user config dir, settings.toml)")

	root.AddCommand(
		newServeCommand(opts),
		newRefCommand(),
		newConfigCommand(opts),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}
