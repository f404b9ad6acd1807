package cmd

import (
	"errors"
	"fmt"

	"github.com/GnosisFoundation/git-ts/internal/dag"
	"github.com/spf13/cobra"
)

func newHeadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "head [branch]",
		Short: "Show or switch the current branch",
		Long: `With no argument, print the branch HEAD points to and its commit.
With a branch name, point HEAD at it. The branch does not need to exist yet.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := repo.SetHead(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "HEAD -> %s\n", dag.RefPath(dag.Heads, args[0]))
				return nil
			}

			branch, err := repo.Head()
			if err != nil {
				return err
			}
			d, err := repo.ResolveHead()
			switch {
			case errors.Is(err, dag.ErrInvalidReference):
				fmt.Fprintf(out(cmd), "%s (no commits yet)\n", branch)
			case err != nil:
				return err
			default:
				fmt.Fprintf(out(cmd), "%s %s\n", branch, d)
			}
			return nil
		},
	}
}
