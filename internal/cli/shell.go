package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/garethgeorge/hybridspace/internal/render"
	"github.com/garethgeorge/hybridspace/internal/report"
	"github.com/garethgeorge/hybridspace/internal/shell"
	"github.com/spf13/cobra"
)

func newShellCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive allocation session",
		Long: `Start an interactive session against a fresh, fully free device.

Type help for the command list. The block map and report are redrawn after
every successful change unless --quiet is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newManager()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !quiet {
				if err := render.Grid(out, m, a.cfg.GridCols); err != nil {
					return err
				}
				if err := render.Status(out, report.Build(m)); err != nil {
					return err
				}
			}
			session := shell.NewSession(m, out, shell.Options{
				GridCols: a.cfg.GridCols,
				Quiet:    quiet,
				Prompt:   "> ",
			})
			return session.Run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not redraw the map after each change")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "run <script|->",
		Short: "Execute shell commands from a file",
		Long: `Execute shell commands from a script file, or from stdin when the
argument is "-". Lines starting with # are comments.

Examples:
  hybridspace run fragment.txt
  printf 'alloc 10 10\nalloc 30 10\nstatus\n' | hybridspace run - --quiet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open script: %w", err)
				}
				defer f.Close()
				in = f
			}

			m, err := a.newManager()
			if err != nil {
				return err
			}
			session := shell.NewSession(m, cmd.OutOrStdout(), shell.Options{
				GridCols: a.cfg.GridCols,
				Quiet:    quiet,
			})
			return session.Run(cmd.Context(), in)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not redraw the map after each change")
	return cmd
}
