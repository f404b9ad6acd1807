package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/GnosisFoundation/git-ts/internal/dag"
	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty repository",
		Long: `Create the .wts control directory in path (default: the working directory).

Running init in an existing repository is safe: missing directories are created and
HEAD is left where it points.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.dir()
			if len(args) == 1 {
				root = args[0]
				if !filepath.IsAbs(root) {
					root = filepath.Join(a.dir(), root)
				}
			}
			repo, err := dag.Init(a.fs, root,
				dag.WithLogger(a.log),
				dag.WithDefaultBranch(a.v.GetString(keyBranch)),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Initialized wts repository in %s\n", repo.ControlDir())
			return nil
		},
	}
	cmd.Flags().StringP(keyBranch, "b", "", "Name of the initial branch (default \"main\")")
	a.bindFlags(cmd.Flags(), keyBranch)
	return cmd
}
