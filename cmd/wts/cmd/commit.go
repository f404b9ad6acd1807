package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/GnosisFoundation/git-ts/internal/dag"
	"github.com/GnosisFoundation/git-ts/internal/tensor"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type commitFlags struct {
	file      string
	message   string
	metadata  string
	parent    string
	noAdvance bool
}

func newCommitCmd(a *app) *cobra.Command {
	var f commitFlags
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record a safetensors file as a new commit",
		Long: `Record the tensors of a safetensors file as a commit.

The parent defaults to the commit of the current branch, and the branch is moved to
the new commit unless --no-advance is given.`,
		Example: `% wts commit -f model.safetensors -m "epoch 3" -d '{"loss": 0.12}'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommit(cmd, a, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "Safetensors file to commit")
	flags.StringVarP(&f.message, "message", "m", "", "Commit message")
	flags.StringVarP(&f.metadata, "metadata", "d", "", "Metadata as a JSON document")
	flags.StringVar(&f.parent, "parent", "", "Parent revision (default: the current branch)")
	flags.BoolVar(&f.noAdvance, "no-advance", false, "Do not move the current branch to the new commit")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runCommit(cmd *cobra.Command, a *app, f commitFlags) error {
	repo, err := a.openRepo()
	if err != nil {
		return err
	}

	path := f.file
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.dir(), path)
	}
	c, err := tensor.Load(a.fs, path)
	if err != nil {
		return err
	}

	var metadata interface{}
	if f.metadata != "" {
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(f.metadata, &metadata); err != nil {
			return fmt.Errorf("--metadata: %w", err)
		}
	}

	branch, err := repo.Head()
	if err != nil {
		return err
	}

	var parent *dag.Digest
	switch {
	case f.parent != "":
		d, err := repo.Resolve(f.parent)
		if err != nil {
			return fmt.Errorf("--parent: %w", err)
		}
		parent = &d
	case repo.Refs.Has(dag.Heads, branch):
		d, err := repo.ResolveHead()
		if err != nil {
			return err
		}
		parent = &d
	}

	d, err := repo.CreateCommit(c, f.message, metadata, parent)
	if errors.Is(err, dag.ErrCyclicHistory) {
		if existing, herr := dag.HashCollection(c); herr == nil && *parent != existing {
			fmt.Fprintf(out(cmd), "nothing to commit, tensors match earlier commit %s\n", existing.Short())
			return nil
		}
		fmt.Fprintln(out(cmd), "nothing to commit, tensors unchanged")
		return nil
	}
	if err != nil {
		return err
	}

	if !f.noAdvance {
		if err := repo.CreateBranch(branch, d); err != nil {
			return err
		}
	}
	a.log.Info("committed",
		zap.String("hash", d.String()),
		zap.String("branch", branch),
		zap.Int("tensors", len(c)),
	)

	label := branch
	if parent == nil {
		label += " (root-commit)"
	}
	fmt.Fprintf(out(cmd), "[%s %s] %s\n", label, d.Short(), f.message)
	return nil
}
