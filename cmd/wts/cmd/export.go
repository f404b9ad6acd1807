package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/GnosisFoundation/git-ts/internal/tensor"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [rev]",
		Short: "Write the tensors of a revision to a safetensors file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			d, err := resolveRev(repo, args)
			if err != nil {
				return err
			}
			c, err := repo.GetObject(d)
			if err != nil {
				return err
			}

			path := output
			if !filepath.IsAbs(path) {
				path = filepath.Join(a.dir(), path)
			}
			if err := tensor.Save(a.fs, path, c); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "wrote %d tensors (%s) to %s\n", len(c), units.HumanSize(float64(c.Size())), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
