package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/opencode-tui/internal/infrastructure/server"
)

type serveOptions struct {
	host      string
	port      string
	workspace []string
	dev       bool
	noStart   bool
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		Long: `Run the daemon in the foreground. OpenCode starts when the first view
attaches (or immediately sends "ready"). SIGINT and SIGTERM shut down
gracefully, killing OpenCode and every session it opened.

Example:
  opencode-tui serve
  opencode-tui serve --workspace ~/src/project --port 7421`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "address to bind (overrides config)")
	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "port to listen on (overrides config)")
	cmd.Flags().StringSliceVarP(&opts.workspace, "workspace", "w", nil, "workspace roots; the first is the working directory")
	cmd.Flags().BoolVar(&opts.dev, "dev", false, "development logging")
	cmd.Flags().BoolVar(&opts.noStart, "no-auto-start", false, "do not start OpenCode when a view attaches")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port != "" {
		cfg.Server.Port = opts.port
	}
	if len(opts.workspace) > 0 {
		cfg.TUI.WorkspaceRoots = opts.workspace
	}
	if opts.dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if opts.noStart {
		cfg.TUI.AutoStart = false
	}
	if len(cfg.TUI.WorkspaceRoots) == 0 {
		if wd, err := os.Getwd(); err == nil {
			cfg.TUI.WorkspaceRoots = []string{wd}
		}
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := srv.Run(ctx)
	closeErr := srv.Close()
	if runErr != nil {
		return fmt.Errorf("server error: %w", runErr)
	}
	return closeErr
}

// contextOrBackground guards commands executed without ExecuteContext
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
