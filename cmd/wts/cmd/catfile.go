package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func newCatFileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat-file [rev]",
		Short: "List the tensors stored for a revision",
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

			writer := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "NAME\tDTYPE\tSHAPE\tSIZE")
			for _, name := range c.Names() {
				t := c[name]
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", name, t.DType, t.Shape, units.HumanSize(float64(t.Size())))
			}
			return writer.Flush()
		},
	}
}
