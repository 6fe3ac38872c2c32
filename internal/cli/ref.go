package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/opencode-tui/internal/domain/fileref"
	"github.com/GriffinCanCode/opencode-tui/internal/providers/filelink"
)

type refOptions struct {
	line      int
	endLine   int
	workspace string
	resolve   bool
}

func newRefCommand() *cobra.Command {
	opts := &refOptions{}

	cmd := &cobra.Command{
		Use:   "ref <path>",
		Short: "Print the OpenCode reference for a file",
		Long: `Print the "@path#Lstart-Lend" reference OpenCode understands for a file,
relative to the workspace. With --resolve the argument may be any reference
form (file://, @path#L10, path:line:col) and is looked up in the workspace.

Example:
  opencode-tui ref internal/app/provider.go --line 10 --end-line 20
  opencode-tui ref --resolve provider.go:42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRef(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVarP(&opts.line, "line", "l", 0, "first line, 1-based")
	cmd.Flags().IntVarP(&opts.endLine, "end-line", "e", 0, "last line, 1-based")
	cmd.Flags().StringVarP(&opts.workspace, "workspace", "w", "", "workspace root (default: current directory)")
	cmd.Flags().BoolVar(&opts.resolve, "resolve", false, "resolve the reference against the workspace")
	return cmd
}

func runRef(cmd *cobra.Command, opts *refOptions, arg string) error {
	root := opts.workspace
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		root = wd
	}
	roots := []string{root}

	if !opts.resolve {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), fileref.Format(arg, selection(opts.line, opts.endLine), roots))
		return err
	}

	index, err := filelink.NewIndex(filelink.IndexConfig{Root: root})
	if err != nil {
		return err
	}
	defer index.Close()

	loc, err := filelink.NewResolver(roots, index, nil).ResolveString(contextOrBackground(cmd.Context()), arg)
	if err != nil {
		return err
	}
	// a bare line reference resolves to an empty selection; keep the line
	var sel *fileref.Selection
	if loc.Selection != nil {
		sel = selection(loc.Selection.Start.Line+1, loc.Selection.End.Line+1)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), fileref.Format(loc.Path, sel, roots))
	return err
}

// selection converts 1-based flags to an editor selection; 0 means unset
func selection(line, endLine int) *fileref.Selection {
	if line <= 0 {
		return nil
	}
	if endLine < line {
		endLine = line
	}
	return &fileref.Selection{
		Start: fileref.Position{Line: line - 1},
		End:   fileref.Position{Line: endLine - 1, Character: 1},
	}
}
