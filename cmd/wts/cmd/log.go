package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newLogCmd(a *app) *cobra.Command {
	var (
		limit   int
		oneline bool
	)
	cmd := &cobra.Command{
		Use:   "log [rev]",
		Short: "Show commit history",
		Long:  `Walk parent links from rev (default HEAD) and print each commit, newest first.`,
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

			w := out(cmd)
			hash := color.New(color.FgYellow)
			n := 0
			for commit, err := range repo.History(d).All() {
				if err != nil {
					return fmt.Errorf("history: %w", err)
				}
				if oneline {
					fmt.Fprintf(w, "%s %s\n", hash.Sprint(commit.Hash.Short()), firstLine(commit.Message))
				} else {
					fmt.Fprintf(w, "%s\n", hash.Sprint("commit "+commit.Hash.String()))
					fmt.Fprintf(w, "Date:   %s\n\n", commit.Timestamp.Local().Format(time.RFC1123Z))
					for _, line := range strings.Split(commit.Message, "\n") {
						fmt.Fprintf(w, "    %s\n", line)
					}
					fmt.Fprintln(w)
				}
				n++
				if limit > 0 && n == limit {
					break
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "Limit the number of commits shown")
	cmd.Flags().BoolVar(&oneline, "oneline", false, "Print one line per commit")
	return cmd
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
