package cmd

import (
	"fmt"

	"github.com/GnosisFoundation/git-ts/internal/dag"
	"github.com/spf13/cobra"
)

// newRefCmd builds "branch" or "tag", which differ only by namespace.
func newRefCmd(a *app, ns dag.Namespace) *cobra.Command {
	var (
		rev string
		del bool
	)
	noun, plural := "branch", "branches"
	if ns == dag.Tags {
		noun, plural = "tag", "tags"
	}

	cmd := &cobra.Command{
		Use:   noun + " [name]",
		Short: "List, create or delete " + plural,
		Long: fmt.Sprintf(`With no argument, list %s. With a name, point %s at a commit,
creating or moving it.`, plural, dag.RefPath(ns, "<name>")),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				if del {
					return fmt.Errorf("%s name required", noun)
				}
				return listRefs(cmd, repo, ns)
			}
			name := args[0]

			if del {
				if ns == dag.Heads {
					err = repo.DeleteBranch(name)
				} else {
					err = repo.DeleteTag(name)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Deleted %s %s\n", noun, name)
				return nil
			}

			d, err := repo.Resolve(rev)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", rev, err)
			}
			if ns == dag.Heads {
				err = repo.CreateBranch(name, d)
			} else {
				err = repo.CreateTag(name, d)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s -> %s\n", dag.RefPath(ns, name), d.Short())
			return nil
		},
	}
	cmd.Flags().StringVarP(&rev, "commit", "c", "HEAD", "Revision the "+noun+" points to")
	cmd.Flags().BoolVarP(&del, "delete", "d", false, "Delete the "+noun)
	return cmd
}

func listRefs(cmd *cobra.Command, repo *dag.Repository, ns dag.Namespace) error {
	names, err := repo.Refs.List(ns)
	if err != nil {
		return err
	}
	current := ""
	if ns == dag.Heads {
		current, _ = repo.Head()
	}
	for _, name := range names {
		marker := "  "
		if name == current {
			marker = "* "
		}
		fmt.Fprintln(out(cmd), marker+name)
	}
	return nil
}
